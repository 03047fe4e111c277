package relayer

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/auction"
	"github.com/slotdao/cycled/pkg/model/contest"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/restapi"
)

const (
	apiPrefix = "/api/v1"
)

// StatusError is returned for failed requests that carry no ledger error code.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type slotsResponse struct {
	Slots []*contest.Slot `json:"slots"`
}

type upkeepResponse struct {
	UpkeepNeeded bool            `json:"upkeepNeeded"`
	PerformData  ledger.HexBytes `json:"performData"`
}

type accountResponse struct {
	Nonce uint64 `json:"nonce"`
}

type receiptResponse struct {
	Sequence uint64          `json:"sequence"`
	Result   json.RawMessage `json:"result"`
}

// HTTPClient talks to the REST API of a node and signs its transactions.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	privateKey ed25519.PrivateKey
	caller     ledger.Address
	contest    ledger.Address
	auction    ledger.Address
}

// NewHTTPClient creates a client for the node at baseURL.
func NewHTTPClient(baseURL string, privateKey ed25519.PrivateKey, contestAddress ledger.Address, auctionAddress ledger.Address, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		privateKey: privateKey,
		caller:     ledger.AddressFromPublicKey(privateKey.Public().(ed25519.PublicKey)),
		contest:    contestAddress,
		auction:    auctionAddress,
	}
}

func (c *HTTPClient) Caller() ledger.Address {
	return c.caller
}

func (c *HTTPClient) do(ctx context.Context, method string, route string, body interface{}, target interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+route, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return decodeError(res.StatusCode, resBytes)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(resBytes, target); err != nil {
		return errors.Wrapf(err, "decoding response of %s %s failed", method, route)
	}
	return nil
}

// decodeError maps the error envelope back to the ledger sentinel of its code.
func decodeError(statusCode int, body []byte) error {
	envelope := &restapi.HTTPErrorResponseEnvelope{}
	if err := json.Unmarshal(body, envelope); err != nil {
		return &StatusError{StatusCode: statusCode, Message: string(body)}
	}

	if sentinel, exists := ledger.ErrorForCode(envelope.Error.Code); exists {
		return errors.WithMessage(sentinel, envelope.Error.Message)
	}
	return &StatusError{StatusCode: statusCode, Message: envelope.Error.Message}
}

func (c *HTTPClient) PhaseInfo(ctx context.Context) (*contest.PhaseInfo, error) {
	info := &contest.PhaseInfo{}
	if err := c.do(ctx, http.MethodGet, "/contest/phase", nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *HTTPClient) Slots(ctx context.Context) ([]*contest.Slot, error) {
	resp := &slotsResponse{}
	if err := c.do(ctx, http.MethodGet, "/contest/slots", nil, resp); err != nil {
		return nil, err
	}
	return resp.Slots, nil
}

func (c *HTTPClient) CheckUpkeep(ctx context.Context) (bool, []byte, error) {
	resp := &upkeepResponse{}
	if err := c.do(ctx, http.MethodGet, "/auction/upkeep", nil, resp); err != nil {
		return false, nil, err
	}
	return resp.UpkeepNeeded, resp.PerformData, nil
}

// submit signs a call with the current nonce of the caller and decodes its result into target.
func (c *HTTPClient) submit(ctx context.Context, to ledger.Address, method string, args interface{}, target interface{}) error {
	account := &accountResponse{}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+c.caller.String(), nil, account); err != nil {
		return err
	}

	transaction, err := ledger.NewTransaction(to, 0, method, args)
	if err != nil {
		return err
	}
	transaction.Sign(c.privateKey, account.Nonce)

	receipt := &receiptResponse{}
	if err := c.do(ctx, http.MethodPost, "/transactions", transaction, receipt); err != nil {
		return err
	}

	if target == nil || len(receipt.Result) == 0 {
		return nil
	}
	return json.Unmarshal(receipt.Result, target)
}

func (c *HTTPClient) AdvancePhase(ctx context.Context) (*contest.Transition, error) {
	transition := &contest.Transition{}
	if err := c.submit(ctx, c.contest, "advancePhase", nil, transition); err != nil {
		return nil, err
	}
	return transition, nil
}

func (c *HTTPClient) FinalizeWithWinner(ctx context.Context, contentRef string, assetPayload string, winnerIndex uint8) (*contest.Transition, error) {
	transition := &contest.Transition{}
	if err := c.submit(ctx, c.contest, "finalizeWithWinner", map[string]interface{}{
		"contentRef":   contentRef,
		"assetPayload": assetPayload,
		"winnerIndex":  winnerIndex,
	}, transition); err != nil {
		return nil, err
	}
	return transition, nil
}

func (c *HTTPClient) PerformUpkeep(ctx context.Context, performData []byte) (*auction.Settlement, error) {
	args := map[string]interface{}{}
	if len(performData) == 8 {
		args["auctionId"] = binary.BigEndian.Uint64(performData)
	}

	settlement := &auction.Settlement{}
	if err := c.submit(ctx, c.auction, "performUpkeep", args, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}
