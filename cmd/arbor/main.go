package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"arbor/internal/app"
	"arbor/internal/tui"

	"github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	var (
		mockMode  bool
		noTUI     bool
		modelFlag string
	)

	root := &cobra.Command{
		Use:     "arbor",
		Short:   "Branching conversations for LLM chat",
		Long:    "arbor is a terminal client for branching LLM conversations: fork any message, swipe between sibling branches, and navigate the chapter timeline or the conversation map.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(app.DefaultConfigPath())
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				cfg.APIKey = os.Getenv("ARBOR_API_KEY")
			}
			if v := os.Getenv("ARBOR_BASE_URL"); v != "" && cfg.BaseURL == app.DefaultConfig().BaseURL {
				cfg.BaseURL = v
			}
			if modelFlag != "" {
				cfg.Model = modelFlag
			}
			if cfg.APIKey == "" {
				mockMode = true
			}

			session, closeLog, err := newSession(cfg, mockMode)
			if err != nil {
				return err
			}
			defer closeLog()

			if noTUI {
				return runREPL(session, os.Stdin, os.Stdout)
			}
			p := tea.NewProgram(tui.NewMainModel(session), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	root.Flags().BoolVar(&mockMode, "mock", false, "run offline with a canned provider")
	root.Flags().BoolVarP(&noTUI, "no-tui", "n", false, "plain REPL instead of the TUI")
	root.Flags().StringVarP(&modelFlag, "model", "m", "", "override the configured model")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSession(cfg app.Config, mockMode bool) (*app.Session, func(), error) {
	logOut := io.Discard
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			logOut = f
			closeLog = func() { _ = f.Close() }
		}
	}
	logger := app.NewLogger(logOut)

	var chain *app.FallbackChain
	var classifier app.TopicClassifier
	if mockMode {
		chain = app.NewFallbackChain(logger, app.OfflineProvider{})
		classifier = app.StaticClassifier{}
	} else {
		client := app.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
		chain = app.NewFallbackChain(logger, &app.APIProvider{Client: client}, app.OfflineProvider{})
		classifier = &app.LLMClassifier{Client: client, Logger: logger}
	}

	session := app.NewSession(chain, classifier, logger)
	session.ChaptersEnabled = cfg.ChaptersEnabled
	session.Segmenter.SetMinBatch(cfg.ChapterMinBatch)
	return session, closeLog, nil
}

// runREPL is the --no-tui surface: one line in, one streamed reply out, with
// a few colon-commands for navigation.
func runREPL(session *app.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "arbor (plain mode). :help for commands, :q to quit.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := replCommand(session, out, line); quit {
				return nil
			}
			continue
		}
		if _, err := session.Send(line); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := session.StreamReply(context.Background(), func(chunk string) {
			fmt.Fprint(out, chunk)
		}); err != nil {
			fmt.Fprintf(out, "\nerror: %v\n", err)
		} else {
			fmt.Fprintln(out)
		}
		foldPendingChapters(session)
	}
}

// foldPendingChapters runs one evaluate-classify-apply round synchronously.
// Called after every thread-length change: completed replies and branch
// switches alike.
func foldPendingChapters(session *app.Session) {
	if batch := session.EvaluateChapters(); batch != nil {
		result := session.Classify(context.Background(), batch)
		session.ApplyClassification(batch, result)
	}
}

func replCommand(session *app.Session, out io.Writer, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":q", ":quit":
		return true
	case ":help":
		fmt.Fprintln(out, ":prev/:next swipe branches, :fork forks at the last user message,")
		fmt.Fprintln(out, ":chapters lists the timeline, :map prints the conversation map, :q quits.")
	case ":prev":
		session.Swipe(app.SwipePrev)
		foldPendingChapters(session)
		printThread(session, out)
	case ":next":
		session.Swipe(app.SwipeNext)
		foldPendingChapters(session)
		printThread(session, out)
	case ":fork":
		thread := session.Thread()
		for i := len(thread) - 1; i >= 0; i-- {
			if thread[i].Author == app.AuthorUser {
				session.BeginFork(thread[i].ID)
				fmt.Fprintln(out, "drafting a branch; next message forks here")
				break
			}
		}
	case ":chapters":
		for _, ch := range session.ThreadChapters() {
			fmt.Fprintf(out, "%s %s (%d)\n", tui.CategoryGlyph(ch.Category), ch.Title, ch.MessageCount)
		}
	case ":map":
		for _, g := range session.Layout() {
			fmt.Fprintf(out, "%*s%s (%.0f, %.0f)\n", g.Depth*2, "", g.Title, g.X, g.Y)
		}
	default:
		fmt.Fprintf(out, "unknown command %s\n", fields[0])
	}
	return false
}

func printThread(session *app.Session, out io.Writer) {
	for _, tm := range session.Thread() {
		label := "you"
		if tm.Author == app.AuthorAssistant {
			label = "arbor"
		}
		if tm.SiblingCount > 1 {
			label = fmt.Sprintf("%s %d/%d", label, tm.SiblingIndex, tm.SiblingCount)
		}
		fmt.Fprintf(out, "[%s] %s\n", label, tm.Content)
	}
}
