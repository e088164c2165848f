package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stemsi/exam-paper/internal/config"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/logger"
	"github.com/stemsi/exam-paper/internal/paper"
	"github.com/stemsi/exam-paper/internal/repository"
	"github.com/stemsi/exam-paper/internal/service"
	"golang.org/x/term"
)

// render-paper writes the question paper of one exam without a running
// server. It reads storage directly and never touches Redis.
func main() {
	var (
		examID int
		format string
		out    string
	)
	flag.IntVar(&examID, "exam", 0, "Exam ID to render")
	flag.StringVar(&format, "format", "pdf", "Output format: pdf, html or print")
	flag.StringVar(&out, "out", "", "Output file (default: stdout)")
	flag.Parse()

	format = strings.ToLower(format)
	if examID <= 0 || (format != "pdf" && format != "html" && format != "print") {
		printUsage()
		os.Exit(2)
	}
	if out == "" && format == "pdf" && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write a PDF to the terminal, use -out or redirect stdout")
		os.Exit(2)
	}

	cfg := config.MustLoad()
	// Logs go to stderr so stdout stays clean for the paper.
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With().Str("component", "render_paper").Logger()

	if err := run(context.Background(), cfg, examID, format, out); err != nil {
		log.Fatal().Err(err).Int("exam_id", examID).Msg("Render failed")
	}
	log.Info().Int("exam_id", examID).Str("format", format).Str("out", out).Msg("Paper rendered")
}

func run(ctx context.Context, cfg *config.Config, examID int, format, out string) error {
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	exams := service.NewExamService(store.Exams, nil, events.NopPublisher{}, 0, log)
	papers := service.NewPaperService(exams)

	render := func(w io.Writer) error {
		switch format {
		case "html":
			return papers.HTML(ctx, w, examID, paper.ModePreview)
		case "print":
			return papers.HTML(ctx, w, examID, paper.ModePrint)
		default:
			return papers.PDF(ctx, w, examID)
		}
	}

	if out == "" {
		return render(os.Stdout)
	}
	return writeFile(out, render)
}

// writeFile renders into path. A failed render or close removes the file so
// no partial paper is left behind.
func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: render-paper -exam <id> [-format pdf|html|print] [-out file]")
	flag.PrintDefaults()
}
