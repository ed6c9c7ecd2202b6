package main

import (
	"github.com/spf13/cobra"

	"github.com/Napageneral/imessage-max/internal/tools"
)

// queryCommands returns one command per query operation. Each prints the
// same JSON the MCP tool returns.
func (c *cli) queryCommands() []*cobra.Command {
	return []*cobra.Command{
		c.findChatCmd(),
		c.messagesCmd(),
		c.chatsCmd(),
		c.searchCmd(),
		c.contextCmd(),
		c.attachmentsCmd(),
		c.contactsCmd(),
	}
}

// run builds the service, calls fn and prints its outcome.
func (c *cli) run(cmd *cobra.Command, fn func(svc *tools.Service) (any, error)) error {
	svc, cleanup, err := c.service()
	if err != nil {
		return err
	}
	defer cleanup()
	return c.result(fn(svc))
}

// groupFlag reads --group as a tri-state: unset means either kind.
func groupFlag(cmd *cobra.Command, value bool) *bool {
	if !cmd.Flags().Changed("group") {
		return nil
	}
	return &value
}

func (c *cli) findChatCmd() *cobra.Command {
	var in tools.FindChatInput
	var group bool
	cmd := &cobra.Command{
		Use:   "find-chat",
		Short: "Find chats by participants, group name or recent content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.IsGroup = groupFlag(cmd, group)
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.FindChat(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&in.Participants, "participant", "p", nil, "participant name, phone or email (repeatable)")
	cmd.Flags().StringVar(&in.Name, "name", "", "part of the group chat name")
	cmd.Flags().StringVar(&in.ContainsRecent, "contains", "", "text from a recent message")
	cmd.Flags().BoolVar(&group, "group", false, "only group chats (--group=false for direct chats)")
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 0, "maximum chats")
	return cmd
}

func (c *cli) messagesCmd() *cobra.Command {
	var in tools.GetMessagesInput
	var noReactions bool
	cmd := &cobra.Command{
		Use:   "messages [chat-id]",
		Short: "Show messages from one chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.ChatID = args[0]
			}
			if noReactions {
				in.IncludeReactions = new(bool)
			}
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.GetMessages(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&in.Participants, "participant", "p", nil, "find the chat by participant (repeatable)")
	cmd.Flags().StringVar(&in.Since, "since", "", "lower time bound (ISO date, 24h, 7d, yesterday)")
	cmd.Flags().StringVar(&in.Before, "before", "", "upper time bound")
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 0, "maximum messages")
	cmd.Flags().StringVar(&in.FromPerson, "from", "", "only messages from this person, or me")
	cmd.Flags().StringVar(&in.Contains, "contains", "", "case-insensitive text filter")
	cmd.Flags().StringVar(&in.Has, "has", "", "links, attachments, images, videos, audio or documents")
	cmd.Flags().BoolVar(&noReactions, "no-reactions", false, "omit reactions")
	cmd.Flags().BoolVar(&in.Unanswered, "unanswered", false, "only my questions without a reply within 24h")
	return cmd
}

func (c *cli) chatsCmd() *cobra.Command {
	var in tools.ListChatsInput
	var group bool
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List recent chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.IsGroup = groupFlag(cmd, group)
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.ListChats(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 0, "maximum chats")
	cmd.Flags().StringVar(&in.Since, "since", "", "only chats active since")
	cmd.Flags().BoolVar(&group, "group", false, "only group chats (--group=false for direct chats)")
	cmd.Flags().IntVar(&in.MinParticipants, "min-participants", 0, "minimum participant count")
	cmd.Flags().IntVar(&in.MaxParticipants, "max-participants", 0, "maximum participant count")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var in tools.SearchInput
	var group bool
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search messages across chats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.Query = args[0]
			}
			in.IsGroup = groupFlag(cmd, group)
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.Search(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringVar(&in.FromPerson, "from", "", "only messages from this person, or me")
	cmd.Flags().StringVar(&in.InChat, "chat", "", "limit to one chat id")
	cmd.Flags().BoolVar(&group, "group", false, "only group chats (--group=false for direct chats)")
	cmd.Flags().StringVar(&in.Has, "has", "", "links, attachments, images, videos, audio or documents")
	cmd.Flags().StringVar(&in.Since, "since", "", "lower time bound")
	cmd.Flags().StringVar(&in.Before, "before", "", "upper time bound")
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 0, "maximum results")
	cmd.Flags().StringVar(&in.Sort, "sort", "", "recent_first or oldest_first")
	cmd.Flags().BoolVar(&in.Unanswered, "unanswered", false, "only my questions without a reply within 24h")
	return cmd
}

func (c *cli) contextCmd() *cobra.Command {
	var in tools.GetContextInput
	cmd := &cobra.Command{
		Use:   "context [message-id]",
		Short: "Show the messages around one message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.MessageID = args[0]
			}
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.GetContext(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringVar(&in.ChatID, "chat", "", "chat to search when the message id is not known")
	cmd.Flags().StringVar(&in.Contains, "contains", "", "text of the target message")
	cmd.Flags().IntVarP(&in.Before, "before", "B", 0, "messages before the target")
	cmd.Flags().IntVarP(&in.After, "after", "A", 0, "messages after the target")
	return cmd
}

func (c *cli) attachmentsCmd() *cobra.Command {
	var in tools.GetAttachmentsInput
	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "List attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.GetAttachments(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringVar(&in.ChatID, "chat", "", "limit to one chat id")
	cmd.Flags().StringVar(&in.FromPerson, "from", "", "only attachments from this person, or me")
	cmd.Flags().StringVar(&in.Type, "type", "", "image, video, audio or document")
	cmd.Flags().StringVar(&in.Since, "since", "", "lower time bound")
	cmd.Flags().StringVar(&in.Before, "before", "", "upper time bound")
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 0, "maximum attachments")
	cmd.Flags().StringVar(&in.Sort, "sort", "", "recent_first, oldest_first or largest_first")
	return cmd
}

func (c *cli) contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "Show contact resolution status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(svc *tools.Service) (any, error) {
				return svc.ContactsStatus(cmd.Context())
			})
		},
	}
}
