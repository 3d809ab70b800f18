package wiki_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/vaultpanel/internal/adapter/driven/wiki"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

const schedulePage = `<html><body>
<p><a href="/wiki/Ignored_Before_Marker">nope</a></p>
<h3>Today&#39;s locations</h3>
<ul>
<li><a href="/wiki/Restoration_Refuge">Restoration Refuge</a></li>
<li><a href="/wiki/Lionguard_Waystation_Waypoint">Lionguard Waystation Waypoint</a></li>
<li><a class="external" href="https://example.com/">skip</a></li>
<li><a href="/wiki/Rally_Waypoint">Rally Waypoint</a></li>
<li><a href="/wiki/Marshwatch_Haven_Waypoint">Marshwatch Haven Waypoint</a></li>
<li><a href="/wiki/Ridgerock_Camp_Waypoint">Ridgerock Camp Waypoint</a></li>
<li><a href="/wiki/Haymal_Gore">Haymal Gore</a></li>
</ul>
</body></html>`

func newTestClient(t *testing.T, body string, status int) (*wiki.Client, *string) {
	t.Helper()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return wiki.NewClientWithHTTPClient(server.Client(), server.URL+"/wiki/Pact_Supply_Network_Agent"), &gotUA
}

func TestPactSupplyLocations(t *testing.T) {
	client, ua := newTestClient(t, schedulePage, http.StatusOK)

	links, err := client.PactSupplyLocations(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "[&BIcHAAA=] : [&BEwDAAA=] : [&BNIEAAA=] : [&BKYBAAA=] : [&BIMCAAA=] : [&BA8CAAA=]", links)
	assert.Contains(t, *ua, "Mozilla/5.0")
}

func TestPactSupplyLocations_MarkerMissing(t *testing.T) {
	client, _ := newTestClient(t, `<html><a href="/wiki/Rally_Waypoint">x</a></html>`, http.StatusOK)

	_, err := client.PactSupplyLocations(context.Background())
	require.ErrorIs(t, err, driven.ErrScheduleNotFound)
}

func TestPactSupplyLocations_BadStatus(t *testing.T) {
	client, _ := newTestClient(t, "", http.StatusBadGateway)

	_, err := client.PactSupplyLocations(context.Background())
	require.Error(t, err)
}

func TestChatLinks(t *testing.T) {
	links, err := wiki.ChatLinks([]string{
		"Town of Prosperity", "Gallant%27s Folly", "Augur%27s Torch",
		"Unknown Place", "Vigil Keep Waypoint", "Bovarin Estate",
	})
	require.NoError(t, err)
	assert.Equal(t, "[&BH4HAAA=] : [&BLkCAAA=] : [&BBEDAAA=] :  : [&BJIBAAA=] : [&BGABAAA=]", links)
}

func TestChatLinks_UnknownDay(t *testing.T) {
	_, err := wiki.ChatLinks([]string{"Rally Waypoint", "Haymal Gore", "a", "b", "c", "d"})
	require.ErrorIs(t, err, driven.ErrScheduleNotFound)

	_, err = wiki.ChatLinks([]string{"Rally Waypoint"})
	require.ErrorIs(t, err, driven.ErrScheduleNotFound)
}
