package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dcablorh/suidrop/internal/config"
	"github.com/dcablorh/suidrop/internal/models"
	"github.com/dcablorh/suidrop/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func handlerContract() *config.ContractConfig {
	return &config.ContractConfig{
		RegistryID: "0xregistry",
		PackageID:  "0xpackage",
		Module:     "dropnew",
		CoinType:   "0x2::sui::SUI",
		ClockID:    "0x6",
		NullSender: "0x0000000000000000000000000000000000000000000000000000000000000000",
	}
}

// stubLedger backs the stats service and resolver in handler tests.
type stubLedger struct {
	inspectFn func(ctx context.Context, sender string, call *services.InspectCall) ([][]byte, error)
}

func (s *stubLedger) Inspect(ctx context.Context, sender string, call *services.InspectCall) ([][]byte, error) {
	return s.inspectFn(ctx, sender, call)
}

func (s *stubLedger) GetObject(ctx context.Context, address string) (map[string]interface{}, error) {
	return nil, services.ErrObjectNotFound
}

type stubDroplets struct {
	loadFn func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error)
}

func (s *stubDroplets) Load(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
	return s.loadFn(ctx, identifier, viewerAccount)
}

type stubHistory struct {
	historyFn func(ctx context.Context, account string) (*models.UserHistory, error)
}

func (s *stubHistory) History(ctx context.Context, account string) (*models.UserHistory, error) {
	return s.historyFn(ctx, account)
}

type stubStats struct {
	stats models.PlatformStats
	fee   uint64
}

func (s *stubStats) Stats(ctx context.Context) (*models.PlatformStats, error) {
	snapshot := s.stats
	return &snapshot, nil
}

func (s *stubStats) FeeBasisPoints() uint64 {
	return s.fee
}

// resolvedLedger answers every lookup with the same present address.
func resolvedLedger(addressBytes []byte) *stubLedger {
	return &stubLedger{
		inspectFn: func(ctx context.Context, sender string, call *services.InspectCall) ([][]byte, error) {
			return [][]byte{append([]byte{1}, addressBytes...)}, nil
		},
	}
}

func newTestEngine(h *DropletHandler) *gin.Engine {
	engine := gin.New()
	router := NewRouter(h, nil)
	router.SetupRoutes(engine)
	return engine
}

func newHandler(droplets services.DropletServiceInterface, history services.HistoryServiceInterface, ledger services.LedgerClientInterface) *DropletHandler {
	contract := handlerContract()
	return NewDropletHandler(
		droplets,
		history,
		services.NewStatsService(ledger, contract),
		services.NewResolver(ledger, contract),
		services.NewCallBuilder(contract),
	)
}

func performJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGetDroplet(t *testing.T) {
	t.Run("ReturnsView", func(t *testing.T) {
		droplets := &stubDroplets{
			loadFn: func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
				assert.Equal(t, "A1B2C3", identifier)
				assert.Equal(t, "0xviewer", viewerAccount)
				return &models.DropletView{ID: identifier, TotalAmount: 5, ViewerHasClaimed: true}, nil
			},
		}
		engine := newTestEngine(newHandler(droplets, nil, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodGet, "/api/droplet/a1b2c3?viewer=0xviewer", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var view models.DropletView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, "A1B2C3", view.ID)
		assert.True(t, view.ViewerHasClaimed)
	})

	t.Run("MalformedIdentifierIsBadRequest", func(t *testing.T) {
		engine := newTestEngine(newHandler(&stubDroplets{}, nil, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodGet, "/api/droplet/short", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("UnknownIdentifierIsNotFound", func(t *testing.T) {
		droplets := &stubDroplets{
			loadFn: func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
				return nil, models.NewNotFoundError(identifier)
			},
		}
		engine := newTestEngine(newHandler(droplets, nil, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodGet, "/api/droplet/ZZZZZZ", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})
}

func TestGetHistory(t *testing.T) {
	sample := &models.UserHistory{
		Created: []models.HistoryEntry{
			{ID: "ACTIVE", View: &models.DropletView{}},
			{ID: "EXPIRD", View: &models.DropletView{IsExpired: true}},
		},
		Claimed: []models.HistoryEntry{},
	}

	t.Run("AppliesFilter", func(t *testing.T) {
		history := &stubHistory{
			historyFn: func(ctx context.Context, account string) (*models.UserHistory, error) {
				assert.Equal(t, "0xuser", account)
				return sample, nil
			},
		}
		engine := newTestEngine(newHandler(&stubDroplets{}, history, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodGet, "/api/history/0xuser?filter=expired", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Filter  string                `json:"filter"`
			Created []models.HistoryEntry `json:"created"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "expired", resp.Filter)
		require.Len(t, resp.Created, 1)
		assert.Equal(t, "EXPIRD", resp.Created[0].ID)
	})

	t.Run("MissingFilterMeansAll", func(t *testing.T) {
		history := &stubHistory{
			historyFn: func(ctx context.Context, account string) (*models.UserHistory, error) {
				return sample, nil
			},
		}
		engine := newTestEngine(newHandler(&stubDroplets{}, history, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodGet, "/api/history/0xuser", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Created []models.HistoryEntry `json:"created"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Created, 2)
	})

	t.Run("UnknownFilterIsBadRequest", func(t *testing.T) {
		engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodGet, "/api/history/0xuser?filter=stale", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStats(t *testing.T) {
	t.Run("ServesLedgerBackedStats", func(t *testing.T) {
		ledger := &stubLedger{
			inspectFn: func(ctx context.Context, sender string, call *services.InspectCall) ([][]byte, error) {
				return [][]byte{{0x2a}, {0x82, 0x00}}, nil
			},
		}
		engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, ledger))

		w := performJSON(engine, http.MethodGet, "/api/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats models.PlatformStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, uint64(42), stats.TotalDroplets)
		assert.Equal(t, uint64(130), stats.FeeBasisPoints)
	})

	t.Run("AcceptsAnyStatsPort", func(t *testing.T) {
		contract := handlerContract()
		handler := NewDropletHandler(
			&stubDroplets{},
			&stubHistory{},
			&stubStats{stats: models.PlatformStats{TotalDroplets: 7, FeeBasisPoints: 200}, fee: 200},
			services.NewResolver(resolvedLedger([]byte{0xd0}), contract),
			services.NewCallBuilder(contract),
		)
		engine := newTestEngine(handler)

		w := performJSON(engine, http.MethodGet, "/api/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats models.PlatformStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, uint64(7), stats.TotalDroplets)
		assert.Equal(t, uint64(200), stats.FeeBasisPoints)

		created := performJSON(engine, http.MethodPost, "/api/droplet/build-create", map[string]interface{}{
			"amount":         "1",
			"receiver_limit": 4,
		})
		require.Equal(t, http.StatusOK, created.Code)

		var resp models.BuildCreateResponse
		require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
		assert.Equal(t, uint64(20_000_000), resp.Estimate.Fee)
	})
}

func TestBuildCreateEndpoint(t *testing.T) {
	engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, resolvedLedger([]byte{0xd0})))

	t.Run("BuildsCallAndEstimate", func(t *testing.T) {
		w := performJSON(engine, http.MethodPost, "/api/droplet/build-create", map[string]interface{}{
			"amount":         "1",
			"receiver_limit": 4,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.BuildCreateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "0xpackage::dropnew::create_droplet", resp.Call.Target)
		assert.Len(t, resp.Call.Arguments, 7)
		assert.Equal(t, uint64(13_000_000), resp.Estimate.Fee)
	})

	t.Run("ReportsAllFieldFailures", func(t *testing.T) {
		w := performJSON(engine, http.MethodPost, "/api/droplet/build-create", map[string]interface{}{
			"amount":         "0",
			"receiver_limit": 0,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error struct {
				Code   string              `json:"code"`
				Fields []models.FieldError `json:"fields"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
		require.Len(t, resp.Error.Fields, 2)
		assert.Equal(t, "amount", resp.Error.Fields[0].Field)
		assert.Equal(t, "receiver_limit", resp.Error.Fields[1].Field)
	})

	t.Run("MalformedJSONIsBadRequest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/droplet/build-create", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "MALFORMED_JSON")
	})
}

func TestBuildClaimEndpoint(t *testing.T) {
	t.Run("NormalizesLinkAndResolves", func(t *testing.T) {
		engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, resolvedLedger([]byte{0xd0, 0x01})))

		w := performJSON(engine, http.MethodPost, "/api/droplet/build-claim", map[string]interface{}{
			"droplet_id":   "https://drop.example.com/claim?id=a1b2c3",
			"claimer_name": "alice",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.BuildClaimResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "0xd001", resp.DropletAddress)
		assert.Equal(t, "0xpackage::dropnew::claim_internal", resp.Call.Target)
		require.Len(t, resp.Call.Arguments, 5)
		assert.Equal(t, "A1B2C3", resp.Call.Arguments[2].Value)
	})

	t.Run("UnresolvedIdentifierIsNotFound", func(t *testing.T) {
		ledger := &stubLedger{
			inspectFn: func(ctx context.Context, sender string, call *services.InspectCall) ([][]byte, error) {
				return [][]byte{{0}}, nil
			},
		}
		engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, ledger))

		w := performJSON(engine, http.MethodPost, "/api/droplet/build-claim", map[string]interface{}{
			"droplet_id":   "ZZZZZZ",
			"claimer_name": "alice",
		})
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidFormNeverResolves", func(t *testing.T) {
		engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, resolvedLedger([]byte{0xd0})))

		w := performJSON(engine, http.MethodPost, "/api/droplet/build-claim", map[string]interface{}{
			"droplet_id":   "nope",
			"claimer_name": "",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestParseCreatedEndpoint(t *testing.T) {
	engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, resolvedLedger([]byte{0xd0})))

	t.Run("ExtractsIdentifierAndLink", func(t *testing.T) {
		w := performJSON(engine, http.MethodPost, "/api/droplet/created", map[string]interface{}{
			"origin": "https://drop.example.com",
			"events": []map[string]interface{}{
				{"type": "0xpackage::dropnew::DropletCreated", "parsedJson": map[string]interface{}{"droplet_id": "XY99ZZ"}},
			},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "XY99ZZ", resp["droplet_id"])
		assert.Equal(t, "https://drop.example.com/claim?id=XY99ZZ", resp["claim_link"])
	})

	t.Run("NoCreationEventIsNotFound", func(t *testing.T) {
		w := performJSON(engine, http.MethodPost, "/api/droplet/created", map[string]interface{}{
			"events": []map[string]interface{}{},
		})
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTranslateRejectionEndpoint(t *testing.T) {
	engine := newTestEngine(newHandler(&stubDroplets{}, &stubHistory{}, resolvedLedger([]byte{0xd0})))

	w := performJSON(engine, http.MethodPost, "/api/droplet/rejection", map[string]interface{}{
		"message": "MoveAbort: E_ALREADY_CLAIMED",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "You have already claimed from this droplet", resp["reason"])
}
