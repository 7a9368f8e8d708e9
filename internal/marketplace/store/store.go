package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout for the marketplace document store. One JSON document per
// entity key plus small set/zset indexes. Documents carry no TTL.
const (
	projectKeyPrefix     = "mp:project:"      // mp:project:{project_id}
	applicationKeyPrefix = "mp:application:"  // mp:application:{application_id}
	chatKeyPrefix        = "mp:chat:"         // mp:chat:{chat_id}
	messageKeyPrefix     = "mp:message:"      // mp:message:{message_id}
	workspaceKeyPrefix   = "mp:workspace:"    // mp:workspace:{workspace_id}
	repairQueueKey       = "mp:award:repairs" // set of project IDs needing saga repair
)

// errDocMissing signals that the watched document key does not exist.
// Repositories translate it to a NotFound domain error.
var errDocMissing = errors.New("document missing")

// getDoc loads and unmarshals the JSON document at key.
func getDoc[T any](ctx context.Context, c *redis.Client, key string) (*T, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errDocMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return doc, nil
}

// marshalDoc serializes a document for pipelined writes.
func marshalDoc(doc any) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// putDoc marshals and stores the document at key.
func putDoc(ctx context.Context, c redis.Cmdable, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// mutateDoc applies mutate to the document at key as an atomic
// read-modify-write: the key is WATCHed, the mutation is applied to the
// loaded copy and written back in a transaction. If the document changed
// underneath, the write is retried once before giving up. Errors returned
// by mutate abort the transaction unretried and propagate unchanged, so
// state-machine checks inside mutate stay authoritative under races.
func mutateDoc[T any](ctx context.Context, c *redis.Client, key string, mutate func(*T) error) (*T, error) {
	var out *T
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errDocMissing
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		doc := new(T)
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
		if err := mutate(doc); err != nil {
			return err
		}
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			out = doc
		}
		return err
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = c.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
