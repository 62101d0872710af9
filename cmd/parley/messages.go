package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/parley"
	"pkt.systems/parley/internal/api"
	"pkt.systems/prettyx"
)

// NewMessagesCommand runs an administrative message search as the active
// account.
func NewMessagesCommand(loader *parley.Loader) *cobra.Command {
	var q api.MessageQuery
	var sort string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Search messages as the active account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch api.MessageSort(sort) {
			case "", api.SortLatest, api.SortOldest, api.SortRelevance:
				q.Sort = api.MessageSort(sort)
			default:
				return fmt.Errorf("sort must be Latest, Oldest, or Relevance")
			}
			cs, err := openAccounts(cmd, loader, "messages", true)
			if err != nil {
				return err
			}
			defer cs.Close()

			resp, err := cs.accounts.QueryMessages(cs.ctx, q)
			if err != nil {
				return fmt.Errorf("query messages: %s: %w", api.MapError(err), err)
			}
			if asJSON {
				data, err := json.Marshal(resp)
				if err != nil {
					return err
				}
				return prettyx.PrettyTo(cmd.OutOrStdout(), data, prettyx.DefaultOptions)
			}
			printMessages(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&q.Query, "query", "", "full-text filter")
	flags.StringVar(&q.Channel, "channel", "", "channel id")
	flags.StringVar(&q.Author, "author", "", "author user id")
	flags.StringVar(&q.Before, "before", "", "only messages before this id")
	flags.StringVar(&q.After, "after", "", "only messages after this id")
	flags.StringVar(&q.Nearby, "nearby", "", "messages around this id")
	flags.StringVar(&sort, "sort", "", "Latest, Oldest, or Relevance")
	flags.IntVar(&q.Limit, "limit", 0, "maximum messages (server default when 0)")
	flags.BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printMessages(w io.Writer, resp api.MessageQueryResponse) {
	names := make(map[string]string, len(resp.Users))
	for _, u := range resp.Users {
		names[u.ID] = u.Username
	}
	for _, msg := range resp.Messages {
		author := names[msg.Author]
		if author == "" {
			author = msg.Author
		}
		_, _ = fmt.Fprintf(w, "%s  %s: %s\n", msg.ID, author, msg.Content)
	}
}
