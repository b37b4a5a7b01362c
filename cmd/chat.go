package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/dialogue"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/filtering"
	"github.com/spigell/smartintern/internal/jobs"
	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/ranking"
)

const (
	PromptAsk         = "Ask a question"
	PromptSearch      = "Search jobs"
	PromptCoverLetter = "Draft a cover letter"
	PromptReportByPub = "Report by publishers"
	PromptJobsToFile  = "Dump ranked jobs to file"
	PromptExit        = "Exit"
	PromptBack        = "back"
	PromptYes         = "Yes"
	PromptNo          = "No"
)

var errExit = errors.New("exit requested")

var menu = promptui.Select{
	Label: "What next?",
	Items: []string{PromptAsk, PromptSearch, PromptCoverLetter, PromptReportByPub, PromptJobsToFile, PromptExit},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Parse a resume and chat about job preferences, search and rank jobs interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	addResumeFlags(chatCmd)
}

// chatState is what the interactive loop keeps between actions.
type chatState struct {
	svc     *services
	session *dialogue.Session
	country string
	topK    int
	exclude string
	ranked  []ranking.Match[jobs.Posting]
	logger  *zap.Logger
}

func chat(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.Close()

	country := cmd.Flag("country").Value.String()
	result, err := parseResumeFile(ctx, svc.parser, cmd.Flag("file").Value.String(), country)
	if err != nil {
		logger.Fatal("parsing resume", zap.Error(err))
	}
	if assistedErr := result.AssistedError(); assistedErr != nil {
		logger.Warn("resume parsed without the assisted extractor", zap.String("reason", errs.Message(assistedErr)))
	}

	session := dialogue.NewSession()
	if err := session.AttachProfile(result.Profile); err != nil {
		logger.Fatal("attaching profile", zap.Error(err))
	}

	fmt.Printf("\nHello %s! Your profile:\n\n%s\n\n", nameOrYou(result.Profile.Name), result.Profile.Summary)

	state := &chatState{
		svc:     svc,
		session: session,
		country: country,
		topK:    config.Ranking.TopK,
		exclude: config.Filters.ExcludeFile,
		logger:  logger,
	}

	for {
		_, action, err := menu.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := state.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Error(action, zap.String("reason", errs.Message(err)))
		}
	}
}

func (s *chatState) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptAsk:
		return s.ask(ctx)
	case PromptSearch:
		return s.search(ctx)
	case PromptCoverLetter:
		return s.coverLetter(ctx)
	case PromptReportByPub:
		if len(s.ranked) == 0 {
			s.logger.Info("no ranked jobs yet", zap.String("hint", "search jobs first"))
			return nil
		}
		pretty, _ := json.MarshalIndent(s.rankedPostings().ReportByPublisher(), "", "  ")
		fmt.Println(string(pretty))
		return nil
	case PromptJobsToFile:
		file, err := s.rankedPostings().DumpToTmpFile()
		if err != nil {
			return err
		}
		s.logger.Info("jobs dumped", zap.String("file", file))
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (s *chatState) ask(ctx context.Context) error {
	question, err := (&promptui.Prompt{Label: "Your question"}).Run()
	if err != nil {
		return nil
	}

	answer, err := s.svc.responder.Converse(ctx, s.session, question)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n\n", answer)
	return nil
}

func (s *chatState) search(ctx context.Context) error {
	if err := s.session.MarkSearchReady(); err != nil {
		return err
	}

	profile, _ := s.session.Profile()
	history := s.session.History()

	retrieval, err := s.svc.matcher.Retrieve(ctx, profile, history, s.country)
	if err != nil {
		return err
	}
	s.logger.Info("jobs found", zap.String("query", retrieval.Query), zap.Int("count", len(retrieval.Postings)))

	ranked, err := s.svc.matcher.Rank(ctx, profile, history, retrieval.Postings, s.topK)
	if err != nil {
		return err
	}
	s.ranked = ranked

	for i, m := range ranked {
		fmt.Printf("%d. [%.3f] %s (%s, %s)\n   %s\n", i+1, m.Score, m.Item.Title, m.Item.Publisher, m.Item.Location, m.Item.ApplyLink)
	}
	fmt.Println()
	return nil
}

func (s *chatState) coverLetter(ctx context.Context) error {
	if len(s.ranked) == 0 {
		s.logger.Info("no ranked jobs yet", zap.String("hint", "search jobs first"))
		return nil
	}

	items := []string{PromptBack}
	for i, m := range s.ranked {
		items = append(items, fmt.Sprintf("%d %s - %s", i+1, m.Item.Title, m.Item.Publisher))
	}

	idx, _, err := (&promptui.Select{Label: "Select a job", Items: items}).Run()
	if err != nil || idx == 0 {
		return nil
	}
	posting := s.ranked[idx-1].Item

	profile, _ := s.session.Profile()
	letter, err := s.svc.letters.Write(ctx, profile, posting)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n\n", letter)

	if s.exclude == "" || strings.TrimSpace(posting.ApplyLink) == "" {
		return nil
	}

	_, answer, err := (&promptui.Select{Label: "Exclude this job from future searches?", Items: []string{PromptYes, PromptNo}}).Run()
	if err != nil || answer != PromptYes {
		return nil
	}
	if err := filtering.AppendExcludeFile(s.exclude, posting.ApplyLink); err != nil {
		return fmt.Errorf("appending to exclude file: %w", err)
	}
	s.logger.Info("job excluded", zap.String("file", s.exclude), zap.String("apply_link", posting.ApplyLink))
	return nil
}

func (s *chatState) rankedPostings() *jobs.Postings {
	items := make([]jobs.Posting, 0, len(s.ranked))
	for _, m := range s.ranked {
		items = append(items, m.Item)
	}
	return jobs.FromValues(items)
}

func nameOrYou(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
