package network

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/tolelom/headstats/ledger"
)

// ErrSnapshot is returned when a snapshot cannot be fetched or decoded.
var ErrSnapshot = errors.New("fetch snapshot")

// SnapshotClient reads a head's confirmed UTxO set over HTTP.
type SnapshotClient struct {
	addr   Address
	client *http.Client
}

// NewSnapshotClient returns a client for addr. tlsCfg may be nil.
func NewSnapshotClient(addr Address, tlsCfg *tls.Config) *SnapshotClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &SnapshotClient{
		addr:   addr,
		client: &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
}

// FetchUTxOs returns the head's current UTxO set ordered by reference.
func (c *SnapshotClient) FetchUTxOs(ctx context.Context) ([]ledger.UTxO, error) {
	url := c.addr.HTTPURL() + "/snapshot/utxo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrSnapshot, url, resp.Status)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSnapshot, err)
	}
	utxos := make([]ledger.UTxO, 0, len(body))
	for key, value := range body {
		u, err := ledger.ParseUTxO(key, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
		}
		utxos = append(utxos, u)
	}
	sort.Slice(utxos, func(i, j int) bool {
		return utxos[i].Ref.String() < utxos[j].Ref.String()
	})
	return utxos, nil
}
