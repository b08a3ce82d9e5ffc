package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glabrego/sitebag-cli/internal/dispatch"
	"github.com/glabrego/sitebag-cli/internal/feed"
	"github.com/glabrego/sitebag-cli/internal/job"
	"github.com/glabrego/sitebag-cli/internal/render/article"
	"github.com/glabrego/sitebag-cli/internal/search"
	"github.com/glabrego/sitebag-cli/internal/tags"
	"github.com/glabrego/sitebag-cli/internal/tui/platform"
	"github.com/glabrego/sitebag-cli/internal/tui/view"
)

const bodyWidth = 80

func listCmd(e *env) *cobra.Command {
	var (
		token    string
		allPages bool
		pageSize int
		format   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries matching search criteria",
		Long: `List entries matching search criteria, e.g.
  sitebag list --criteria 'archived=all&tag=golang&q=generics'
Without --criteria the last search used in the TUI is repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			criteria := e.service.LastCriteria(cmd.Context())
			if cmd.Flags().Changed("criteria") {
				c, err := search.Decode(token)
				if err != nil {
					return err
				}
				criteria = c
			}

			loader := feed.NewLoader(e.service, feed.WithLogger(e.logger), feed.WithPageSize(pageSize))
			loader.Reset(criteria)
			for {
				res, err := loader.LoadNext(cmd.Context())
				if err != nil {
					return err
				}
				if !allPages || res.Status != feed.Loaded {
					break
				}
			}
			return writeEntries(cmd.OutOrStdout(), format, loader.Entries())
		},
	}
	cmd.Flags().StringVarP(&token, "criteria", "c", "", "search criteria token (archived=..&tag=..&q=..)")
	cmd.Flags().BoolVar(&allPages, "all-pages", false, "follow pages until the server has no more")
	cmd.Flags().IntVarP(&pageSize, "size", "n", feed.PageSize, "entries per page")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json, yaml")
	return cmd
}

func showCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one entry with its content as plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			entry, err := e.service.Entry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeEntry(cmd.OutOrStdout(), format, entry, article.PlainText(entry, bodyWidth))
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json, yaml")
	return cmd
}

func addCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Save a URL as a new entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL, err := platform.ValidateEntryURL(args[0])
			if err != nil {
				return err
			}
			id, msg, err := e.service.AddEntry(cmd.Context(), rawURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", orDefault(msg, "Entry added"), id)
			return nil
		},
	}
}

func tagCmd(e *env) *cobra.Command {
	var (
		add      []string
		remove   []string
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "tag <entry-id> [tag...]",
		Short: "Edit the tags of an entry",
		Long: `Edit the tags of an entry. Bare arguments and --add add tags, --remove
drops them, --clear starts from an empty set. Saving an empty set removes
every tag from the entry.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := tags.NewSession(e.client, args[0], tags.WithLogger(e.logger))
			if err := s.Open(cmd.Context()); err != nil {
				return err
			}
			if clearAll {
				for _, tag := range s.Tags() {
					s.RemoveTag(tag)
				}
			}
			for _, tag := range remove {
				s.RemoveTag(tag)
			}
			for _, tag := range append(args[1:], add...) {
				s.AddTag(tag)
			}
			if !clearAll && sameTags(s.Tags(), s.Original()) {
				fmt.Fprintln(cmd.OutOrStdout(), "Tags unchanged")
				return nil
			}

			outcome, err := s.Commit(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch outcome.Kind {
			case tags.UntaggedAll:
				fmt.Fprintf(out, "%s: removed %s\n", orDefault(outcome.Message, "Tags removed"), strings.Join(outcome.Tags, ", "))
			default:
				fmt.Fprintf(out, "%s: %s\n", orDefault(outcome.Message, "Tags saved"), strings.Join(outcome.Tags, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&add, "add", "a", nil, "tags to add")
	cmd.Flags().StringSliceVarP(&remove, "remove", "r", nil, "tags to remove")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove all current tags first")
	return cmd
}

func tagsCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List every tag with its usage count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			cloud, err := e.service.TagCloud(cmd.Context())
			if err != nil {
				return err
			}
			return writeTags(cmd.OutOrStdout(), format, cloud)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json, yaml")
	return cmd
}

func archiveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <entry-id>",
		Short: "Toggle the archived flag of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := e.dispatcher.ToggleArchived(cmd.Context(), args[0])
			return report(cmd, msg, "Entry updated", err)
		},
	}
}

func favourCmd(e *env, favourite bool) *cobra.Command {
	use, short := "favour", "Mark an entry as favourite"
	if !favourite {
		use, short = "unfavour", "Remove the favourite mark from an entry"
	}
	return &cobra.Command{
		Use:   use + " <entry-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := e.dispatcher.SetFavourite(cmd.Context(), args[0], favourite)
			return report(cmd, msg, "Entry updated", err)
		},
	}
}

func deleteCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes: %w", args[0], dispatch.ErrNotConfirmed)
			}
			msg, err := e.dispatcher.Delete(cmd.Context(), dispatch.ConfirmDelete(args[0]))
			return report(cmd, msg, "Entry deleted", err)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

func reextractCmd(e *env) *cobra.Command {
	var entryID string
	cmd := &cobra.Command{
		Use:   "reextract",
		Short: "Re-run content extraction and follow its progress",
		Long:  "Re-run content extraction for one entry (--entry) or for all entries, printing progress until the job finishes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			poller := job.NewPoller(e.client, job.WithLogger(e.logger))
			handle, err := poller.Start(ctx, entryID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, orDefault(handle.Message, "Re-extraction started"))

			err = handle.Run(ctx, func(status job.Status) {
				if frac, ok := view.JobFraction(status); ok {
					fmt.Fprintf(out, "%3.0f%% %s\n", frac*100, view.JobDetails(status))
					return
				}
				fmt.Fprintln(out, orDefault(view.JobDetails(status), "running"))
			})
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "Stopped watching; the job keeps running on the server")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Re-extraction finished")
			return nil
		},
	}
	cmd.Flags().StringVarP(&entryID, "entry", "e", "", "entry id (default: all entries)")
	return cmd
}

func report(cmd *cobra.Command, msg, fallback string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), orDefault(msg, fallback))
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
