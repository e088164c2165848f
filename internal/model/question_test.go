package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseQuestionType(t *testing.T) {
	for _, qt := range QuestionTypes {
		got, err := ParseQuestionType(string(qt))
		if err != nil || got != qt {
			t.Errorf("ParseQuestionType(%q) = %q, %v", qt, got, err)
		}
	}
	if _, err := ParseQuestionType("Essay"); err == nil {
		t.Error("expected error for Essay")
	}
	if QuestionType("mcq").Valid() {
		t.Error("question types are case sensitive")
	}
}

func TestQuestionMarshalFlattensBody(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		want string
	}{
		{
			name: "mcq",
			q:    Question{ID: 1, ExamID: 2, Prompt: "2+2=?", Body: MCQBody{Options: []string{"3", "4", "5"}}},
			want: `{"id":1,"examId":2,"questionType":"MCQ","question":"2+2=?","mcqOptions":["3","4","5"],"answerCols":1}`,
		},
		{
			name: "true/false",
			q:    Question{ID: 3, ExamID: 2, Prompt: "Sky is blue", Body: TrueFalseBody{}},
			want: `{"id":3,"examId":2,"questionType":"True/False","question":"Sky is blue","mcqOptions":[],"answerCols":1}`,
		},
		{
			name: "q&a",
			q:    Question{ID: 4, ExamID: 2, Prompt: "Explain", Body: QABody{AnswerRows: 4}},
			want: `{"id":4,"examId":2,"questionType":"Q&A","question":"Explain","mcqOptions":[],"answerCols":4}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.q)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestQuestionFromRowDropsForeignColumns(t *testing.T) {
	q, err := QuestionFromRow(1, 9, "True/False", "p", []string{"stale"}, 7)
	if err != nil {
		t.Fatalf("QuestionFromRow: %v", err)
	}
	if _, ok := q.Body.(TrueFalseBody); !ok {
		t.Fatalf("body = %T, want TrueFalseBody", q.Body)
	}
	if len(q.MCQOptions()) != 0 || q.AnswerCols() != DefaultAnswerRows {
		t.Errorf("stale columns leaked: options=%v cols=%d", q.MCQOptions(), q.AnswerCols())
	}

	qa, err := QuestionFromRow(2, 9, "Q&A", "p", nil, 0)
	if err != nil {
		t.Fatalf("QuestionFromRow: %v", err)
	}
	if qa.AnswerCols() != DefaultAnswerRows {
		t.Errorf("AnswerCols = %d, want default", qa.AnswerCols())
	}

	if _, err := QuestionFromRow(3, 9, "Essay", "p", nil, 1); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestCreateQuestionRequestCoercesNumericStrings(t *testing.T) {
	var req CreateQuestionRequest
	body := `{"examId":"12","questionType":"Q&A","question":"Why?","mcqOptions":[],"answerCols":"4"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if fields := req.Validate(); fields != nil {
		t.Fatalf("Validate: %v", fields)
	}
	q, err := req.ToQuestion()
	if err != nil {
		t.Fatalf("ToQuestion: %v", err)
	}
	if q.ExamID != 12 {
		t.Errorf("ExamID = %d, want 12", q.ExamID)
	}
	if got := q.Body; !reflect.DeepEqual(got, QABody{AnswerRows: 4}) {
		t.Errorf("Body = %#v, want QABody{4}", got)
	}
}

func TestCreateQuestionRequestValidate(t *testing.T) {
	four := FlexInt(4)
	zero := FlexInt(0)
	tooMany := FlexInt(MaxAnswerRows + 1)

	tests := []struct {
		name      string
		req       CreateQuestionRequest
		wantField string
	}{
		{"mcq ok", CreateQuestionRequest{QuestionType: "MCQ", Question: "q", MCQOptions: []string{"a"}}, ""},
		{"mcq without options", CreateQuestionRequest{QuestionType: "MCQ", Question: "q"}, "mcqOptions"},
		{"mcq blank option", CreateQuestionRequest{QuestionType: "MCQ", Question: "q", MCQOptions: []string{"a", " "}}, "mcqOptions[1]"},
		{"blank prompt", CreateQuestionRequest{QuestionType: "True/False", Question: "   "}, "question"},
		{"qa explicit rows", CreateQuestionRequest{QuestionType: "Q&A", Question: "q", AnswerCols: &four}, ""},
		{"qa zero means default", CreateQuestionRequest{QuestionType: "Q&A", Question: "q", AnswerCols: &zero}, ""},
		{"qa too many rows", CreateQuestionRequest{QuestionType: "Q&A", Question: "q", AnswerCols: &tooMany}, "answerCols"},
		{"true/false ignores stale fields", CreateQuestionRequest{QuestionType: "True/False", Question: "q", MCQOptions: []string{""}, AnswerCols: &tooMany}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := tt.req.Validate()
			if tt.wantField == "" {
				if fields != nil {
					t.Fatalf("unexpected errors: %v", fields)
				}
				return
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("expected error on %q, got %v", tt.wantField, fields)
			}
		})
	}
}

func TestToQuestionDropsOtherBranches(t *testing.T) {
	rows := FlexInt(9)
	req := CreateQuestionRequest{
		ExamID:       3,
		QuestionType: "MCQ",
		Question:     " 2+2=? ",
		MCQOptions:   []string{" 3", "4 ", "5"},
		AnswerCols:   &rows,
	}
	q, err := req.ToQuestion()
	if err != nil {
		t.Fatalf("ToQuestion: %v", err)
	}
	if q.Prompt != "2+2=?" {
		t.Errorf("Prompt = %q", q.Prompt)
	}
	if !reflect.DeepEqual(q.MCQOptions(), []string{"3", "4", "5"}) {
		t.Errorf("options = %v", q.MCQOptions())
	}
	if q.AnswerCols() != DefaultAnswerRows {
		t.Errorf("AnswerCols = %d, want default for MCQ", q.AnswerCols())
	}
}

func TestQuestionJSONRoundTripKeepsVariant(t *testing.T) {
	in := Question{ID: 5, ExamID: 1, Prompt: "Pick", Body: MCQBody{Options: []string{"A", "B"}}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Question
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("got %#v, want %#v", out, in)
	}
}
