package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr bool
	}{
		{name: "nil ports", ports: nil, wantErr: true},
		{name: "no retriever", ports: &Ports{Answerer: &mockAnswerer{}}, wantErr: true},
		{name: "retriever only", ports: &Ports{Retriever: &mockRetriever{}}},
		{name: "all ports", ports: &Ports{
			Retriever: &mockRetriever{},
			Answerer:  &mockAnswerer{},
			Indexer:   &mockIndexer{},
			Cache:     &mockCache{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.ports)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingRetriever)
				assert.Nil(t, server)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, server.Handler())
		})
	}
}

func TestPorts_Missing(t *testing.T) {
	assert.Equal(t, []string{"answerer", "indexer", "cache"}, (&Ports{Retriever: &mockRetriever{}}).missing())
	assert.Equal(t, []string{"indexer"}, (&Ports{Answerer: &mockAnswerer{}, Cache: &mockCache{}}).missing())
}
