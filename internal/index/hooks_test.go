package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/sitesearch/internal/record"
)

// versioned is a page with staged and live copies.
type versioned struct {
	*record.Static
	live   bool
	onLive bool
}

func (v versioned) IsLiveVersion() bool { return v.live }
func (v versioned) ExistsOnLive() bool  { return v.onLive }

func TestHooks_AfterWrite(t *testing.T) {
	tests := []struct {
		name string
		rec  record.Record
		want uint64
	}{
		{"plain record", page(1, "Plain"), 1},
		{"live version", versioned{Static: page(2, "Live"), live: true}, 1},
		{"staged version", versioned{Static: page(3, "Staged")}, 0},
		{"unsearchable class", &record.Static{Class: "Member", ID: 4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, idx := newTestMutator(t)
			h := NewHooks(m, nil)

			require.NoError(t, h.AfterWrite(context.Background(), tt.rec))
			assert.Equal(t, tt.want, docCount(t, idx))
		})
	}
}

func TestHooks_AfterDelete(t *testing.T) {
	tests := []struct {
		name string
		rec  record.Record
		want uint64
	}{
		{"plain record", page(1, "Plain"), 0},
		{"live copy remains", versioned{Static: page(1, "Plain"), onLive: true}, 1},
		{"no live copy", versioned{Static: page(1, "Plain")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: the record is indexed
			ctx := context.Background()
			m, idx := newTestMutator(t)
			require.NoError(t, m.Upsert(ctx, page(1, "Plain")))
			h := NewHooks(m, nil)

			// When
			require.NoError(t, h.AfterDelete(ctx, tt.rec))

			// Then
			assert.Equal(t, tt.want, docCount(t, idx))
		})
	}
}
