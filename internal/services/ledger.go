package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dcablorh/suidrop/internal/config"
)

// ErrObjectNotFound is returned by GetObject when the address has no
// readable object behind it.
var ErrObjectNotFound = errors.New("object not found")

// InspectCall describes one read-only view invocation of the drop hub
// program. Arguments are positional and typed, so the client can encode
// them into the transaction kind a dev-inspect takes.
type InspectCall struct {
	Target        string
	TypeArguments []string
	Arguments     []InspectArg
}

// InspectArgKind tags how a view argument is materialized on the wire.
type InspectArgKind int

const (
	inspectObject InspectArgKind = iota
	inspectPureString
	inspectPureAddress
)

// InspectArg is one positional argument of a view invocation.
type InspectArg struct {
	Kind  InspectArgKind
	Value string
}

// ObjectInput references an on-chain object by ID.
func ObjectInput(id string) InspectArg {
	return InspectArg{Kind: inspectObject, Value: id}
}

// PureString passes a UTF-8 string by value.
func PureString(s string) InspectArg {
	return InspectArg{Kind: inspectPureString, Value: s}
}

// PureAddress passes a 32-byte address by value.
func PureAddress(addr string) InspectArg {
	return InspectArg{Kind: inspectPureAddress, Value: addr}
}

// LedgerClient is a JSON-RPC client for a Sui fullnode. Read-only view
// calls are encoded locally as a programmable transaction kind and
// dev-inspected in a single round trip, so no funded signer and no gas
// object is ever needed.
type LedgerClient struct {
	endpoint string
	client   *http.Client
	config   *config.RPCConfig
	reqID    atomic.Int64

	// Shared-object inputs are keyed by their initial shared version,
	// which never changes, so resolutions are cached per object ID.
	mu             sync.RWMutex
	sharedVersions map[string]uint64
}

// NewLedgerClient creates a new fullnode client with the configured
// timeout applied per attempt.
func NewLedgerClient(cfg *config.RPCConfig) *LedgerClient {
	return &LedgerClient{
		endpoint:       cfg.Endpoint,
		client:         &http.Client{Timeout: cfg.Timeout},
		config:         cfg,
		sharedVersions: make(map[string]uint64),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip, retrying transport failures
// with linear backoff. The last error wins.
func (lc *LedgerClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      lc.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	var lastErr error
	for attempt := 0; attempt <= lc.config.MaxRetries; attempt++ {
		lastErr = lc.doOnce(ctx, method, body, out)
		if lastErr == nil {
			return nil
		}
		// Node-side rejections are deterministic, retrying cannot help.
		var rerr *rpcError
		if errors.As(lastErr, &rerr) {
			return lastErr
		}
		if attempt < lc.config.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(lc.config.RetryDelay * time.Duration(attempt+1)):
			}
		}
	}
	return fmt.Errorf("rpc %s failed after %d attempts: %w", method, lc.config.MaxRetries+1, lastErr)
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (lc *LedgerClient) doOnce(ctx context.Context, method string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lc.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("rpc %s: http %d: %s", method, resp.StatusCode, string(b))
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// returnValue is one positional value of an inspect result: a byte array
// paired with its type tag.
type returnValue [2]json.RawMessage

type inspectResults struct {
	Results []struct {
		ReturnValues []returnValue `json:"returnValues"`
	} `json:"results"`
	Error string `json:"error"`
}

// Inspect encodes the view call as a programmable transaction kind and
// dev-inspects it with the given sender. Read-only: no state change, no
// gas cost, and the reserved null sender works because dev-inspect
// takes kind bytes rather than a full signed transaction.
func (lc *LedgerClient) Inspect(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
	kind, err := lc.buildTransactionKind(ctx, call)
	if err != nil {
		return nil, err
	}

	var res inspectResults
	params := []interface{}{sender, base64.StdEncoding.EncodeToString(kind)}
	if err := lc.call(ctx, "sui_devInspectTransactionBlock", params, &res); err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("inspect %s: %s", call.Target, res.Error)
	}
	if len(res.Results) == 0 {
		return [][]byte{}, nil
	}

	values := make([][]byte, 0, len(res.Results[0].ReturnValues))
	for _, rv := range res.Results[0].ReturnValues {
		raw, err := rv.bytes()
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", call.Target, err)
		}
		values = append(values, raw)
	}
	return values, nil
}

// bytes decodes the JSON number array half of a return value pair.
func (rv returnValue) bytes() ([]byte, error) {
	var nums []int
	if err := json.Unmarshal(rv[0], &nums); err != nil {
		return nil, fmt.Errorf("return value bytes: %w", err)
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		out[i] = byte(n)
	}
	return out, nil
}

type objectResult struct {
	Data *struct {
		Content *struct {
			DataType string                 `json:"dataType"`
			Fields   map[string]interface{} `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// GetObject fetches an object's move fields. ErrObjectNotFound covers
// both a missing object and one that is not a move object.
func (lc *LedgerClient) GetObject(ctx context.Context, address string) (map[string]interface{}, error) {
	params := []interface{}{address, map[string]interface{}{"showContent": true}}

	var res objectResult
	if err := lc.call(ctx, "sui_getObject", params, &res); err != nil {
		return nil, err
	}
	if res.Error != nil || res.Data == nil || res.Data.Content == nil {
		return nil, ErrObjectNotFound
	}
	if res.Data.Content.DataType != "moveObject" {
		return nil, ErrObjectNotFound
	}
	return res.Data.Content.Fields, nil
}

// buildTransactionKind resolves the call's object inputs and encodes
// the single-MoveCall transaction kind a dev-inspect accepts.
func (lc *LedgerClient) buildTransactionKind(ctx context.Context, call *InspectCall) ([]byte, error) {
	pkg, module, function, err := splitTarget(call.Target)
	if err != nil {
		return nil, err
	}

	inputs := make([]callInput, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		switch arg.Kind {
		case inspectObject:
			obj, err := lc.resolveObjectInput(ctx, arg.Value)
			if err != nil {
				return nil, fmt.Errorf("resolve input %s: %w", arg.Value, err)
			}
			inputs = append(inputs, callInput{object: obj})
		case inspectPureString:
			w := &bcsWriter{}
			w.str(arg.Value)
			inputs = append(inputs, callInput{pure: w.bytes()})
		case inspectPureAddress:
			addr, err := parseAddress(arg.Value)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, callInput{pure: addr[:]})
		default:
			return nil, fmt.Errorf("unknown argument kind %d", arg.Kind)
		}
	}

	return encodeTransactionKind(pkg, module, function, call.TypeArguments, inputs)
}

type objectRefResult struct {
	Data *struct {
		ObjectID string      `json:"objectId"`
		Version  string      `json:"version"`
		Digest   string      `json:"digest"`
		Owner    interface{} `json:"owner"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// resolveObjectInput fetches the ownership metadata an object input
// carries on the wire: the initial shared version for shared objects,
// or the current version and digest for owned and immutable ones.
func (lc *LedgerClient) resolveObjectInput(ctx context.Context, id string) (*objectInput, error) {
	addr, err := parseAddress(id)
	if err != nil {
		return nil, err
	}

	lc.mu.RLock()
	iv, cached := lc.sharedVersions[id]
	lc.mu.RUnlock()
	if cached {
		return &objectInput{id: addr, shared: true, initialVersion: iv}, nil
	}

	params := []interface{}{id, map[string]interface{}{"showOwner": true}}
	var res objectRefResult
	if err := lc.call(ctx, "sui_getObject", params, &res); err != nil {
		return nil, err
	}
	if res.Error != nil || res.Data == nil {
		return nil, ErrObjectNotFound
	}

	if owner, ok := res.Data.Owner.(map[string]interface{}); ok {
		if sharedMeta, ok := owner["Shared"].(map[string]interface{}); ok {
			iv, err := asUint64(sharedMeta["initial_shared_version"])
			if err != nil {
				return nil, fmt.Errorf("object %s shared version: %w", id, err)
			}
			lc.mu.Lock()
			lc.sharedVersions[id] = iv
			lc.mu.Unlock()
			return &objectInput{id: addr, shared: true, initialVersion: iv}, nil
		}
	}

	version, err := strconv.ParseUint(res.Data.Version, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("object %s version: %w", id, err)
	}
	digest, err := base58Decode(res.Data.Digest)
	if err != nil {
		return nil, fmt.Errorf("object %s digest: %w", id, err)
	}
	return &objectInput{id: addr, version: version, digest: digest}, nil
}

// asUint64 accepts the number-or-decimal-string encodings version
// fields arrive in.
func asUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case float64:
		return uint64(n), nil
	case string:
		return strconv.ParseUint(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected numeric encoding %T", v)
}

// IsHealthy checks whether the fullnode is responsive.
func (lc *LedgerClient) IsHealthy() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seq string
	if err := lc.call(ctx, "sui_getLatestCheckpointSequenceNumber", []interface{}{}, &seq); err != nil {
		return fmt.Errorf("RPC health check failed: %w", err)
	}
	return nil
}

func splitTarget(target string) (pkg, module, function string, err error) {
	first := -1
	second := -1
	for i := 0; i+1 < len(target); i++ {
		if target[i] == ':' && target[i+1] == ':' {
			if first < 0 {
				first = i
			} else {
				second = i
				break
			}
		}
	}
	if first < 0 || second < 0 {
		return "", "", "", fmt.Errorf("malformed call target %q", target)
	}
	return target[:first], target[first+2 : second], target[second+2:], nil
}
