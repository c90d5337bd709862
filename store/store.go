package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrWrongType marks an op that hit a key holding a different kind of value,
// such as a GET against a set.
var ErrWrongType = errors.New("wrong type")

// Store defines the key-value backend used by the script repository.
type Store interface {
	// Single-key operations
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) (int64, error)

	// Enumeration
	Keys(ctx context.Context, pattern string) ([]string, error)
	Members(ctx context.Context, key string) ([]string, error)

	// Batches. Pipeline sends ops in one round trip; Tx additionally runs
	// them as a single MULTI/EXEC unit. Results are returned in op order.
	// Pipeline reports ErrWrongType per op in Result.Err; Tx fails on it.
	// Any other failure fails the whole batch.
	Pipeline(ctx context.Context, ops ...Op) ([]Result, error)
	Tx(ctx context.Context, ops ...Op) ([]Result, error)

	Ping(ctx context.Context) error
	Close() error
}

// OpKind selects the command an Op runs.
type OpKind int

const (
	OpGet OpKind = iota
	OpSet
	OpSetNX
	OpDel
	OpDelIfEquals
	OpSAdd
	OpSRem
)

func (k OpKind) String() string {
	switch k {
	case OpGet:
		return "GET"
	case OpSet:
		return "SET"
	case OpSetNX:
		return "SETNX"
	case OpDel:
		return "DEL"
	case OpDelIfEquals:
		return "DELIFEQ"
	case OpSAdd:
		return "SADD"
	case OpSRem:
		return "SREM"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is a single queued command in a batch.
type Op struct {
	Kind   OpKind
	Key    string
	Value  []byte
	Member string
}

// Result is the outcome of one Op.
//
// For OpGet, Found reports whether the key existed and Value holds its bytes.
// For write ops, Changed reports whether the command modified the store.
// Err is set only by Pipeline, for an op that failed with ErrWrongType.
type Result struct {
	Value   []byte
	Found   bool
	Changed bool
	Err     error
}

func Get(key string) Op { return Op{Kind: OpGet, Key: key} }

func Set(key string, value []byte) Op { return Op{Kind: OpSet, Key: key, Value: value} }

func SetNX(key string, value []byte) Op { return Op{Kind: OpSetNX, Key: key, Value: value} }

func Del(key string) Op { return Op{Kind: OpDel, Key: key} }

// DelIfEquals deletes key only while it still holds expected.
func DelIfEquals(key string, expected []byte) Op {
	return Op{Kind: OpDelIfEquals, Key: key, Value: expected}
}

func SAdd(key, member string) Op { return Op{Kind: OpSAdd, Key: key, Member: member} }

func SRem(key, member string) Op { return Op{Kind: OpSRem, Key: key, Member: member} }
