package model

// SuggestedSubjects is the subject list offered by the exam form.
// Subjects outside the list are accepted.
var SuggestedSubjects = []string{
	"English",
	"Mathematics",
	"Science",
	"Social Studies",
	"Computer",
	"General Knowledge",
	"Hindi",
	"Telugu",
	"Other",
}

// DefaultSubject preselects the exam form's subject.
const DefaultSubject = "English"
