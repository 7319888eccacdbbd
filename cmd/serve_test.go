package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-planner/internal/mclp"
	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/model"
	"github.com/sells-group/coverage-planner/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	mux := newServeMux(context.Background(), st, milp.Enumerate{}, milp.Options{}, mclp.Params{})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st
}

const testInstanceJSON = `{
	"name": "api-test",
	"households": ["H1", "H2", "H3"],
	"existing_hospitals": ["EJ1"],
	"candidate_hospitals": ["CJ1", "CJ2"],
	"population": {"H1": 100, "H2": 200, "H3": 150},
	"travel_distances": {
		"H1": {"EJ1": 3, "CJ1": 20, "CJ2": 8},
		"H2": {"EJ1": 20, "CJ1": 20, "CJ2": 9},
		"H3": {"EJ1": 30, "CJ1": 30, "CJ2": 30}
	},
	"max_travel_distance": 10,
	"max_new_hospitals": 1
}`

func TestServe_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServe_SolveAndFetchPlan(t *testing.T) {
	srv, st := newTestServer(t)

	resp, err := http.Post(srv.URL+"/solve", "application/json", strings.NewReader(testInstanceJSON))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted["id"])
	assert.Equal(t, "api-test", accepted["instance"])

	// The solve runs asynchronously; wait for the plan to land in the store.
	require.Eventually(t, func() bool {
		_, err := st.GetPlan(context.Background(), accepted["id"])
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	planResp, err := http.Get(srv.URL + "/plans/" + accepted["id"])
	require.NoError(t, err)
	defer planResp.Body.Close()
	require.Equal(t, http.StatusOK, planResp.StatusCode)

	var plan model.Plan
	require.NoError(t, json.NewDecoder(planResp.Body).Decode(&plan))
	assert.Equal(t, model.StatusOptimal, plan.Status)
	assert.Equal(t, int64(300), plan.CoveredPopulation)
	assert.Equal(t, []string{"CJ2"}, plan.OpenedSites)
	assert.Equal(t, []string{"H3"}, plan.UncoverableHouseholds)
}

func TestServe_SolveBadBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/solve", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_SolveInvalidInstance(t *testing.T) {
	srv, _ := newTestServer(t)

	// Site in both lists is a configuration error, rejected up front.
	body := `{
		"households": ["H1"],
		"existing_hospitals": ["J1"],
		"candidate_hospitals": ["J1"],
		"population": {"H1": 10},
		"travel_distances": {},
		"max_travel_distance": 5,
		"max_new_hospitals": 1
	}`
	resp, err := http.Post(srv.URL+"/solve", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_SolveRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)

	// Burst capacity is 4; a fifth immediate request is rejected.
	var got429 bool
	for i := 0; i < 6; i++ {
		resp, err := http.Post(srv.URL+"/solve", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			got429 = true
		}
	}
	assert.True(t, got429)
}

func TestServe_GetPlanNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/plans/no-such-plan")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_ListPlans(t *testing.T) {
	srv, st := newTestServer(t)

	require.NoError(t, st.SavePlan(context.Background(), &model.Plan{
		InstanceName: "timor",
		Status:       model.StatusOptimal,
	}))

	resp, err := http.Get(srv.URL + "/plans?instance=timor")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var plans []model.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plans))
	require.Len(t, plans, 1)
	assert.Equal(t, "timor", plans[0].InstanceName)

	resp2, err := http.Get(srv.URL + "/plans?instance=other")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var empty []model.Plan
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&empty))
	assert.Empty(t, empty)
}
