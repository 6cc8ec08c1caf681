// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/blinklabs-io/superdao"
	"github.com/blinklabs-io/superdao/internal/config"
	"github.com/spf13/cobra"
)

// withNode opens the persisted state, runs fn and stops the node
func withNode(
	cfg *config.Config,
	fn func(n *superdao.Node) error,
) {
	logger := commonRun()
	n, err := openNode(cfg, logger, nil)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	fnErr := fn(n)
	if err := n.Stop(); err != nil {
		logger.Error(
			"failed to stop node: "+err.Error(),
			"component", programName,
		)
	}
	if fnErr != nil {
		slog.Error(fnErr.Error())
		os.Exit(1)
	}
}

func printProposals(ctx context.Context, w io.Writer, n *superdao.Node) error {
	entries, err := n.Proposals(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no active proposals")
		return nil
	}
	for _, entry := range entries {
		ballots, err := n.Votes(ctx, entry.ID)
		if err != nil {
			return err
		}
		votes := make([]string, 0, len(ballots))
		for _, ballot := range ballots {
			votes = append(
				votes,
				fmt.Sprintf("%s=%s", ballot.Member, ballot.Vote),
			)
		}
		fmt.Fprintf(
			w,
			"%d: end=%d call=%s votes=[%s]\n",
			entry.ID,
			entry.Proposal.VotingPeriodEnd,
			entry.Proposal.Call,
			strings.Join(votes, " "),
		)
	}
	return nil
}

func printMembers(ctx context.Context, w io.Writer, n *superdao.Node) error {
	members, err := n.Members(ctx)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintln(w, "no members")
		return nil
	}
	for _, member := range members {
		fmt.Fprintln(w, member.String())
	}
	return nil
}

func printOutbox(w io.Writer, n *superdao.Node, ack []uint) error {
	db := n.Database()
	if db == nil {
		return fmt.Errorf("no store plugin configured")
	}
	for _, seq := range ack {
		if err := db.AckMessage(uint64(seq)); err != nil {
			return fmt.Errorf("ack message %d: %w", seq, err)
		}
		fmt.Fprintf(w, "acked %d\n", seq)
	}
	msgs, err := db.PendingMessages()
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(w, "no pending messages")
		return nil
	}
	for _, msg := range msgs {
		fmt.Fprintf(
			w,
			"%d: queued=%s dest=%x msg=%x\n",
			msg.Sequence,
			msg.QueuedTime().UTC().Format(time.RFC3339),
			msg.Destination,
			msg.Message,
		)
	}
	return nil
}

func proposalsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List active proposals and their votes",
		Run: func(cmd *cobra.Command, args []string) {
			withNode(configFromCommand(cmd), func(n *superdao.Node) error {
				return printProposals(cmd.Context(), os.Stdout, n)
			})
		},
	}
	return cmd
}

func membersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List registered members",
		Run: func(cmd *cobra.Command, args []string) {
			withNode(configFromCommand(cmd), func(n *superdao.Node) error {
				return printMembers(cmd.Context(), os.Stdout, n)
			})
		},
	}
	return cmd
}

func outboxCommand() *cobra.Command {
	var ack []uint
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "List queued cross-domain messages",
		Run: func(cmd *cobra.Command, args []string) {
			withNode(configFromCommand(cmd), func(n *superdao.Node) error {
				return printOutbox(os.Stdout, n, ack)
			})
		},
	}
	cmd.Flags().
		UintSliceVar(&ack, "ack", nil, "acknowledge the message(s) with the given sequence number")
	return cmd
}
