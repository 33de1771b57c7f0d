package ballot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultRetries specifies the number of times to attempt a request before
// giving up. Retrying a vote is always safe: the ledger's uniqueness check
// guarantees a retried ballot can never be counted twice.
const DefaultRetries = 3

// NewClient creates a client for the ballot API at the given address,
// authenticating with the supplied identity token.
func NewClient(addr, token string) (*Client, error) {
	if _, err := url.Parse(addr); err != nil {
		return nil, fmt.Errorf("could not parse endpoint address: %s", err)
	}

	return &Client{
		addr:  addr,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Client makes JSON requests against a running ballot server on behalf of a
// single identity. It retries transient failures; failed validations are
// returned as *Error values with the kind reported by the server.
type Client struct {
	addr  string
	token string
	http  *http.Client
}

//===========================================================================
// Request API
//===========================================================================

// CreateElection registers a new election and returns its id.
func (c *Client) CreateElection(req *CreateElectionRequest) (id uint64, err error) {
	var rep struct {
		ElectionID uint64 `json:"election_id"`
	}
	if err = c.send(http.MethodPost, "/v1/elections", req, &rep); err != nil {
		return 0, err
	}
	return rep.ElectionID, nil
}

// AddCandidate appends a candidate to the election roster and returns the
// assigned candidate id.
func (c *Client) AddCandidate(electionID uint64, name string) (id uint64, err error) {
	var rep struct {
		CandidateID uint64 `json:"candidate_id"`
	}
	path := fmt.Sprintf("/v1/elections/%d/candidates", electionID)
	if err = c.send(http.MethodPost, path, &AddCandidateRequest{Name: name}, &rep); err != nil {
		return 0, err
	}
	return rep.CandidateID, nil
}

// Vote casts the client identity's ballot for the candidate.
func (c *Client) Vote(electionID, candidateID uint64) error {
	path := fmt.Sprintf("/v1/elections/%d/votes", electionID)
	return c.send(http.MethodPost, path, &VoteRequest{CandidateID: candidateID}, nil)
}

// CloseElection terminally closes an expired election.
func (c *Client) CloseElection(electionID uint64) error {
	path := fmt.Sprintf("/v1/elections/%d/close", electionID)
	return c.send(http.MethodPost, path, nil, nil)
}

// GetElection fetches the election snapshot with its candidate roster.
func (c *Client) GetElection(electionID uint64) (info *ElectionInfo, err error) {
	info = new(ElectionInfo)
	path := fmt.Sprintf("/v1/elections/%d", electionID)
	if err = c.send(http.MethodGet, path, nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Status fetches the server status summary.
func (c *Client) Status() (status map[string]interface{}, err error) {
	status = make(map[string]interface{})
	if err = c.send(http.MethodGet, "/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

//===========================================================================
// Transport Internals
//===========================================================================

// send performs a single API request with retries on transport failures and
// 5xx responses. 4xx responses are not retried: they decode into the typed
// error the server reported.
func (c *Client) send(method, path string, in, out interface{}) (err error) {
	var body []byte
	if in != nil {
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	for attempt := 0; attempt < DefaultRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}

		var req *http.Request
		if req, err = http.NewRequest(method, c.addr+path, bytes.NewReader(body)); err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		var rep *http.Response
		if rep, err = c.http.Do(req); err != nil {
			continue
		}

		var data []byte
		data, err = io.ReadAll(rep.Body)
		rep.Body.Close()
		if err != nil {
			continue
		}

		if rep.StatusCode >= 500 {
			err = fmt.Errorf("server error: %s", rep.Status)
			continue
		}

		if rep.StatusCode >= 400 {
			return decodeError(rep.StatusCode, data)
		}

		if out != nil {
			return json.Unmarshal(data, out)
		}
		return nil
	}

	return fmt.Errorf("request failed after %d attempts: %s", DefaultRetries, err)
}

// decodeError reconstructs the typed ledger error from an API error reply.
func decodeError(code int, data []byte) error {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if jerr := json.Unmarshal(data, &body); jerr != nil || body.Error == "" {
		return fmt.Errorf("request failed with status %d", code)
	}

	for i, name := range kindStrings {
		if name == body.Kind {
			return &Error{Kind: Kind(i), Message: body.Error}
		}
	}
	return fmt.Errorf("%s", body.Error)
}
