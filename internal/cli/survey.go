package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scentbox/internal/config"
	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/survey"
)

// NewSurveyCommand creates the survey command group.
func NewSurveyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Record and sync survey answers",
		Long: `Record fragrance survey answers in the local store and upload them.

Answers given without a session are marked pending and uploaded on the
next login. An answer set the remote already confirmed is never uploaded
twice.`,
	}

	cmd.AddCommand(newSurveyAnswerCommand(rootOpts))
	cmd.AddCommand(newSurveyShowCommand(rootOpts))
	cmd.AddCommand(newSurveySubmitCommand(rootOpts))
	cmd.AddCommand(newSurveyLoginCommand(rootOpts))
	cmd.AddCommand(newSurveyResetCommand(rootOpts))
	cmd.AddCommand(newSurveyProgressCommand(rootOpts))
	return cmd
}

// withSurvey opens the app and a restored survey engine for the duration
// of fn.
func withSurvey(opts *RootOptions, cmd *cobra.Command, authenticated func(*app) bool, fn func(ctx context.Context, a *app, eng *survey.Engine) error) error {
	logger := newLogger(opts, cmd.ErrOrStderr())
	a, err := openApp(opts, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := a.newSurvey(ctx, authenticated(a))
	if err != nil {
		return err
	}
	return fn(ctx, a, eng)
}

func signedOut(*app) bool { return false }

func newSurveyAnswerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <key> <value>",
		Short: "Record one answer",
		Long: `Record one answer locally. Integer values are ratings; anything else is
a choice.

Examples:
  scentbox survey answer intensity 4
  scentbox survey answer family woody`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			value := model.ParseAnswerValue(args[1])
			return withSurvey(rootOpts, cmd, signedOut, func(ctx context.Context, a *app, eng *survey.Engine) error {
				if err := a.questions.Validate(args[0], value); err != nil {
					return out.Fail(ExitFailure, "answer_rejected", err.Error(), map[string]any{"key": args[0]})
				}
				if !eng.SetAnswer(ctx, args[0], value) {
					return out.Fail(ExitFailure, "answer_rejected", "answer not recorded", map[string]any{"key": args[0]})
				}
				st := eng.Snapshot()
				return out.Success(st, func(w io.Writer) {
					fmt.Fprintf(w, "Recorded %s = %v (%d answers, pending upload: %t)\n",
						args[0], value, len(st.Answers), st.PendingUpload)
				})
			})
		},
	}
}

func newSurveyShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show recorded answers and sync state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			return withSurvey(rootOpts, cmd, signedOut, func(ctx context.Context, a *app, eng *survey.Engine) error {
				st := eng.Snapshot()
				return out.Success(st, func(w io.Writer) {
					printSurveyStatus(w, st, a.questions.Missing(st.Answers))
				})
			})
		},
	}
}

func printSurveyStatus(w io.Writer, st survey.Status, missing []string) {
	if len(st.Answers) == 0 {
		fmt.Fprintln(w, "No answers recorded.")
	}
	for _, key := range st.Answers.SortedKeys() {
		fmt.Fprintf(w, "  %-12s %v\n", key, st.Answers[key])
	}
	fmt.Fprintf(w, "Pending upload: %t\n", st.PendingUpload)
	if st.SubmittedHash != "" {
		fmt.Fprintf(w, "Last confirmed: %s\n", st.SubmittedHash)
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "Required, unanswered: %v\n", missing)
	}
}

func newSurveySubmitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Upload the current answers if signed in",
		Long: `Upload the current answers to the remote store.

Nothing is sent when no session is configured, when there are no answers,
or when the remote already confirmed this exact answer set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			return withSurvey(rootOpts, cmd, (*app).authenticated, func(ctx context.Context, a *app, eng *survey.Engine) error {
				submitted := eng.SubmitIfAuthenticated(ctx)
				return reportSubmit(out, eng.Snapshot(), submitted)
			})
		},
	}
}

func newSurveyLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Apply a login and upload pending answers",
		Long: `Observe the configured session as a login. Pending answers are
uploaded the same way a UI would on sign-in.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			return withSurvey(rootOpts, cmd, signedOut, func(ctx context.Context, a *app, eng *survey.Engine) error {
				if !a.authenticated() {
					return out.Fail(ExitFailure, "unauthenticated", "no session configured (set "+config.EnvToken+")", nil)
				}
				submitted := eng.ObserveNow(ctx, true)
				return reportSubmit(out, eng.Snapshot(), submitted)
			})
		},
	}
}

type submitReport struct {
	Submitted bool          `json:"submitted"`
	Status    survey.Status `json:"status"`
}

func reportSubmit(out *OutputFormatter, st survey.Status, submitted bool) error {
	return out.Success(submitReport{Submitted: submitted, Status: st}, func(w io.Writer) {
		switch {
		case submitted:
			fmt.Fprintf(w, "Submitted %d answers.\n", len(st.Answers))
		case st.PendingUpload:
			fmt.Fprintln(w, "Not submitted; answers remain pending.")
		default:
			fmt.Fprintln(w, "Nothing to submit.")
		}
	})
}

func newSurveyResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reset",
		Short:         "Clear answers, progress and sync state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			return withSurvey(rootOpts, cmd, signedOut, func(ctx context.Context, a *app, eng *survey.Engine) error {
				eng.ResetSurvey(ctx)
				return out.Success(eng.Snapshot(), func(w io.Writer) {
					fmt.Fprintln(w, "Survey reset.")
				})
			})
		},
	}
}

func newSurveyProgressCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [last-question-key]",
		Short: "Save or show the resume checkpoint",
		Long: `With an argument, save a checkpoint at that question. Without one,
show the checkpoint if it is still fresh.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			return withSurvey(rootOpts, cmd, signedOut, func(ctx context.Context, a *app, eng *survey.Engine) error {
				if len(args) == 1 && !eng.SaveProgress(ctx, args[0]) {
					return out.Fail(ExitFailure, "progress_rejected", "checkpoint not saved", nil)
				}
				cp, ok := eng.Progress(ctx)
				if !ok {
					return out.Fail(ExitFailure, "no_progress", "no fresh checkpoint", nil)
				}
				return out.Success(cp, func(w io.Writer) {
					fmt.Fprintf(w, "Resume at %s (%d of %d answered, saved %s)\n",
						cp.LastQuestionKey, cp.AnsweredCount, cp.TotalQuestions,
						cp.Timestamp.Format(time.RFC3339))
				})
			})
		},
	}
}
