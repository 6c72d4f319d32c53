package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/thread"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		convs, err := newClient().Inbox(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWITH\tUNREAD\tLAST")
		for _, c := range convs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.ID, c.Other.FullName, c.UnreadCount, c.LastMessagePreview)
		}
		return w.Flush()
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show unread notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := newClient().Notifications(cmd.Context(), true, 50)
		if err != nil {
			return err
		}
		for _, n := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s: %s\n", n.CreatedAt.Local().Format("Jan 02 15:04"), n.Title, n.Message)
		}
		return nil
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy <product-id> <quantity>",
	Short: "Order a product; the order appears in the seller conversation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("quantity %q: %w", args[1], err)
		}
		res, err := newClient().Purchase(cmd.Context(), args[0], qty)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "order %s in conversation %s\n", res.Order.ID, res.ConversationID)
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:       "order (pending|paid) <order-id>",
	Short:     "Move an order forward (seller only)",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"pending", "paid"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		var (
			o   *domain.OrderView
			err error
		)
		switch args[0] {
		case "pending":
			o, err = c.MarkPending(cmd.Context(), args[1])
		case "paid":
			o, err = c.MarkPaid(cmd.Context(), args[1])
		default:
			return fmt.Errorf("unknown action %q (want pending or paid)", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), thread.OrderCard(*o))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <conversation-id>",
	Short: "Follow a thread live; lines typed on stdin are sent as messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()
	c := newClient()
	out := cmd.OutOrStdout()

	hdr, err := c.Header(ctx, args[0])
	if err != nil {
		return err
	}
	viewer := viewerID()
	if viewer == "" {
		viewer = hdr.Conversation.OtherParticipant(hdr.Other.ID)
	}
	fmt.Fprintf(out, "conversation with %s\n", hdr.Other.FullName)

	var (
		printMu sync.Mutex
		printed = make(map[string]struct{})
	)
	sess := thread.NewSession(c, args[0], viewer, thread.DefaultInterval, log)
	sess.OnChange = func(snap thread.Snapshot) {
		printMu.Lock()
		defer printMu.Unlock()
		lines := thread.Lines(snap, viewer)
		for i, m := range snap.Messages {
			if _, ok := printed[m.ID]; ok {
				continue
			}
			// Order refs wait until their order is loaded.
			if m.Body.Kind == domain.KindOrder && strings.HasSuffix(lines[i], thread.LoadingOrder) {
				continue
			}
			printed[m.ID] = struct{}{}
			fmt.Fprintln(out, lines[i])
		}
	}

	notifier := thread.NewNotifier(c, thread.DefaultNotificationInterval, log)
	notifier.OnNew = func(ns []domain.Notification) {
		printMu.Lock()
		defer printMu.Unlock()
		for _, n := range ns {
			fmt.Fprintf(out, "* %s: %s\n", n.Title, n.Message)
		}
	}

	// Stdin blocks without honouring ctx, so it stays outside the group.
	go func() {
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			if _, err := sess.Send(ctx, text); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "send failed: %v\n", err)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error { return notifier.Run(gctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
