package services

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dcablorh/suidrop/internal/models"
)

// mockLedger scripts Inspect and GetObject per test.
type mockLedger struct {
	inspectFn   func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error)
	getObjectFn func(ctx context.Context, address string) (map[string]interface{}, error)
}

func (m *mockLedger) Inspect(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
	if m.inspectFn == nil {
		return nil, errors.New("unexpected Inspect call")
	}
	return m.inspectFn(ctx, sender, call)
}

func (m *mockLedger) GetObject(ctx context.Context, address string) (map[string]interface{}, error) {
	if m.getObjectFn == nil {
		return nil, errors.New("unexpected GetObject call")
	}
	return m.getObjectFn(ctx, address)
}

// mockDroplets scripts per-identifier view loads.
type mockDroplets struct {
	loadFn func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error)
}

func (m *mockDroplets) Load(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
	return m.loadFn(ctx, identifier, viewerAccount)
}

func encodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func encodePresentAddress(raw []byte) []byte {
	return append([]byte{1}, raw...)
}

func encodeIdentifierList(items []string) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(items)))
	for _, s := range items {
		n := make([]byte, 4)
		binary.LittleEndian.PutUint32(n, uint32(len(s)))
		buf = append(buf, n...)
		buf = append(buf, s...)
	}
	return buf
}
