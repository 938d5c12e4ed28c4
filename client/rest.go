package client

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/alfredovitale/frogger-server/common"
)

// restClient talks to the server's REST control API.
type restClient struct {
	rest      *resty.Client
	serverURL string
}

func newRestClient(serverURL string) *restClient {
	client := new(restClient)
	client.serverURL = serverURL
	client.rest = resty.New()
	return client
}

// fetchInfo retrieves the server's software name and version, a cheap way
// to confirm the address points at a compatible server before dialing the
// game port.
func (r *restClient) fetchInfo() (common.InfoResponse, error) {
	var info common.InfoResponse

	response, err := r.rest.R().SetResult(&info).Get(r.serverURL + "/info")
	if err != nil {
		return info, err
	}
	if response.StatusCode() != http.StatusOK {
		return info, fmt.Errorf("/info returned status %d", response.StatusCode())
	}

	return info, nil
}

// fetchScores retrieves the leaderboard over REST.
func (r *restClient) fetchScores() (common.Scores, error) {
	var scores common.Scores

	response, err := r.rest.R().SetResult(&scores).Get(r.serverURL + "/scores")
	if err != nil {
		return scores, err
	}
	if response.StatusCode() != http.StatusOK {
		return scores, fmt.Errorf("/scores returned status %d", response.StatusCode())
	}

	return scores, nil
}
