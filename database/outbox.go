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

package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/superdao/database/types"
)

var ErrOutboxMessageNotFound = errors.New("outbox message not found")

// OutboxMessage is a cross-chain message waiting to be picked up by a relayer.
// Destination and Message hold the exact encoded bytes from the call
type OutboxMessage struct {
	cbor.StructAsArray
	Sequence    uint64
	Destination []byte
	Message     []byte
	QueuedAt    int64
}

func (m OutboxMessage) QueuedTime() time.Time {
	return time.UnixMilli(m.QueuedAt)
}

// SendMessage queues an already-encoded message for its destination. It
// satisfies the dispatcher's message transport
func (d *Database) SendMessage(ctx context.Context, dest, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var seq uint64
	err := d.Transaction(true).Do(func(txn *Txn) error {
		var err error
		seq, err = nextOutboxSequence(txn)
		if err != nil {
			return err
		}
		data, err := cbor.Encode(
			&OutboxMessage{
				Sequence:    seq,
				Destination: bytes.Clone(dest),
				Message:     bytes.Clone(msg),
				QueuedAt:    time.Now().UnixMilli(),
			},
		)
		if err != nil {
			return err
		}
		if err := txn.Set(types.OutboxKey(seq), data); err != nil {
			return err
		}
		next, err := cbor.Encode(seq + 1)
		if err != nil {
			return err
		}
		return txn.Set([]byte(types.NextOutboxSequenceKey), next)
	})
	if err != nil {
		return fmt.Errorf("queue outbound message: %w", err)
	}
	d.metrics.outboxQueued.Inc()
	d.metrics.outboxPending.Inc()
	d.logger.Debug(
		"queued outbound message",
		"component", "database",
		"sequence", seq,
		"size", len(msg),
	)
	return nil
}

// PendingMessages returns queued messages in sequence order
func (d *Database) PendingMessages() ([]OutboxMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ret []OutboxMessage
	err := d.Transaction(false).Do(func(txn *Txn) error {
		var err error
		ret, err = pendingMessages(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// AckMessage removes a delivered message from the queue
func (d *Database) AckMessage(seq uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.Transaction(true).Do(func(txn *Txn) error {
		key := types.OutboxKey(seq)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, types.ErrKeyNotFound) {
				return fmt.Errorf("%w: %d", ErrOutboxMessageNotFound, seq)
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}
	d.metrics.outboxAcked.Inc()
	d.metrics.outboxPending.Dec()
	return nil
}

func (d *Database) initOutboxMetrics() error {
	msgs, err := d.PendingMessages()
	if err != nil {
		return err
	}
	d.metrics.outboxPending.Set(float64(len(msgs)))
	return nil
}

func nextOutboxSequence(txn *Txn) (uint64, error) {
	data, err := txn.Get([]byte(types.NextOutboxSequenceKey))
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var seq uint64
	if _, err := cbor.Decode(data, &seq); err != nil {
		return 0, fmt.Errorf("decode outbox sequence: %w", err)
	}
	return seq, nil
}

func pendingMessages(txn *Txn) ([]OutboxMessage, error) {
	prefix := []byte(types.OutboxKeyPrefix)
	iter := txn.NewIterator(prefix)
	defer iter.Close()
	var ret []OutboxMessage
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		if _, err := types.OutboxSequenceFromKey(item.Key()); err != nil {
			return nil, err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var msg OutboxMessage
		if _, err := cbor.Decode(val, &msg); err != nil {
			return nil, fmt.Errorf("decode outbox message: %w", err)
		}
		ret = append(ret, msg)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
