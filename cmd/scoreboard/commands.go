package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alamicos/scoreboard/internal/client"
	"github.com/alamicos/scoreboard/internal/scoreboard"
)

func newBoardsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List the server's leaderboards.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, cfg)
			defer cancel()

			boards, localOnly, err := client.New(cfg.server).Boards(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tTITLE\tKEYED BY\tSCORE FIELD")
			for _, b := range boards {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Slug, b.Title, b.Variant, b.ScoreField)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if localOnly {
				fmt.Fprintln(cmd.OutOrStdout(), "server has no backing store: scores are kept locally")
			}
			return nil
		},
	}
}

func newShowCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <game>",
		Short: "Print a leaderboard.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, cfg)
			defer cancel()

			cl, s := cfg.syncer(cmd.ErrOrStderr())
			b, err := cfg.board(ctx, cl, args[0])
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), b, s.Ranking(ctx, b))
		},
	}
}

func newSubmitCmd(cfg *Config) *cobra.Command {
	var (
		name  string
		score int64
		id    string
	)

	cmd := &cobra.Command{
		Use:   "submit <game>",
		Short: "Record one attempt.",
		Long: "Record one attempt. Every submit is a new attempt with a fresh id " +
			"unless --id names an earlier one to improve.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, cfg)
			defer cancel()

			cl, s := cfg.syncer(cmd.ErrOrStderr())
			b, err := cfg.board(ctx, cl, args[0])
			if err != nil {
				return err
			}

			sess := client.NewSession(name, b.Slug[:1])
			if id != "" {
				sess.ClientID = id
			}
			v := s.Submit(ctx, b, sess.Attempt(score))
			if errors.Is(v.Err, scoreboard.ErrInvalidAttempt) {
				return v.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempt %s\n", sess.ClientID)
			return printView(cmd.OutOrStdout(), b, v)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&name, "name", "n", "", "player name (env: SCOREBOARD_NAME)")
	fs.Int64Var(&score, "score", 0, "score of the attempt")
	fs.StringVar(&id, "id", "", "attempt id to improve instead of starting a new attempt")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newFlushCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "flush <game>",
		Short: "Send attempts queued while the server was unreachable.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, cfg)
			defer cancel()

			cl, s := cfg.syncer(cmd.ErrOrStderr())
			b, err := cfg.board(ctx, cl, args[0])
			if err != nil {
				return err
			}
			n, err := s.Flush(ctx, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d attempts delivered\n", n)
			return nil
		},
	}
}

func newVoteCmd(cfg *Config) *cobra.Command {
	var ballot client.Ballot

	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Cast or replace a survey vote.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, cfg)
			defer cancel()

			_, s := cfg.syncer(cmd.ErrOrStderr())
			votes, src, err := s.Vote(ctx, ballot)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d votes (%s)\n", len(votes), src)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&ballot.Email, "email", "", "voter email, one ballot per email")
	fs.StringVarP(&ballot.Name, "name", "n", "", "voter name (env: SCOREBOARD_NAME)")
	fs.StringVar(&ballot.MVP, "mvp", "", "most valuable player")
	fs.StringVar(&ballot.MasPerra, "mas-perra", "", "the other category")
	for _, f := range []string{"email", "name", "mvp", "mas-perra"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func newTallyCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tally",
		Short: "Print survey results.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, cfg)
			defer cancel()

			t, err := client.New(cfg.server).Tally(ctx)
			if errors.Is(err, client.ErrLocalOnly) {
				local, lerr := client.NewFileStore(cfg.fs, cfg.dataDir).LoadVotes()
				if lerr != nil {
					return lerr
				}
				t = scoreboard.TallyBallots(toBallots(local))
				err = nil
			}
			if err != nil {
				return err
			}
			return printTally(cmd.OutOrStdout(), t)
		},
	}
}

func toBallots(votes []client.Ballot) []scoreboard.Ballot {
	out := make([]scoreboard.Ballot, 0, len(votes))
	for _, v := range votes {
		out = append(out, scoreboard.Ballot{Email: v.Email, Name: v.Name, MVP: v.MVP, MasPerra: v.MasPerra})
	}
	return out
}

func printView(w io.Writer, b scoreboard.Board, v client.View) error {
	if v.Err != nil {
		fmt.Fprintf(w, "leaderboard temporarily unavailable: %v\n", v.Err)
	}
	if v.Source != client.SourceRemote {
		fmt.Fprintf(w, "showing %s copy", v.Source)
		if v.Pending > 0 {
			fmt.Fprintf(w, ", %d attempts queued", v.Pending)
		}
		fmt.Fprintln(w)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tNAME\t%s\n", b.ScoreField)
	for i, label := range client.Labels(v.Entries) {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, label, v.Entries[i].Score)
	}
	return tw.Flush()
}

func printTally(w io.Writer, t scoreboard.Tally) error {
	fmt.Fprintf(w, "%d voters\n", t.Voters)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cat := range []struct {
		title  string
		counts []scoreboard.Count
	}{{"MVP", t.MVP}, {"MAS PERRA", t.MasPerra}} {
		fmt.Fprintf(tw, "%s\tVOTES\n", cat.title)
		for _, c := range cat.counts {
			fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Votes)
		}
	}
	return tw.Flush()
}
