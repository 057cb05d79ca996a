package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hailam/chessrules/internal/board"
)

// DefaultCloudURL is the Lichess cloud evaluation endpoint.
const DefaultCloudURL = "https://lichess.org/api/cloud-eval"

// CloudAnalyzer looks positions up in a cloud evaluation database.
// Note: This requires network access, has rate limits, and only knows
// positions someone has analysed before.
type CloudAnalyzer struct {
	client  *http.Client
	baseURL string
	cfg     Config
}

// NewCloudAnalyzer creates a cloud analyzer. An empty baseURL selects
// DefaultCloudURL.
func NewCloudAnalyzer(baseURL string, cfg Config) *CloudAnalyzer {
	if baseURL == "" {
		baseURL = DefaultCloudURL
	}
	return &CloudAnalyzer{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: baseURL,
		cfg:     cfg.withDefaults(),
	}
}

// Cloud eval response structure. Scores are from White's point of view.
type cloudResponse struct {
	FEN    string `json:"fen"`
	KNodes int    `json:"knodes"`
	Depth  int    `json:"depth"`
	PVs    []struct {
		Moves string `json:"moves"`
		CP    *int   `json:"cp"`
		Mate  *int   `json:"mate"`
	} `json:"pvs"`
}

// Analyze implements Analyzer. The request depth is not forwarded; the
// stored evaluation is returned whatever depth it was computed at.
func (ca *CloudAnalyzer) Analyze(ctx context.Context, req Request) ([]Line, error) {
	pos, err := board.DecodeFEN(req.FEN)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("fen", req.FEN)
	q.Set("multiPv", fmt.Sprint(ca.cfg.Lines))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ca.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := ca.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cloud eval: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("cloud eval: unexpected status %s", resp.Status)
	}

	var result cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("cloud eval: decode: %w", err)
	}

	// Flip to the side to move.
	sign := 1
	if pos.SideToMove == board.Black {
		sign = -1
	}

	pvs := make([]PV, 0, len(result.PVs))
	for _, p := range result.PVs {
		pv := PV{Moves: strings.Fields(p.Moves)}
		switch {
		case p.Mate != nil:
			pv.IsMate = true
			pv.Mate = sign * *p.Mate
		case p.CP != nil:
			pv.CP = sign * *p.CP
		}
		pvs = append(pvs, pv)
	}

	return BuildLines(req.FEN, pvs, ca.cfg.Lines, ca.cfg.MovesPerLine)
}
