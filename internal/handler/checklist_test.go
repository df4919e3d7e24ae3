package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/handler"
)

func TestPacking_AddToggleDelete(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, "Aki")
	ts.createTrip(t, token, "Aki", "Ben")

	rec := ts.do(t, http.MethodPost, "/trip/checklist", token, map[string]any{"item": "Passport", "assignedTo": "Aki"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var passport domain.PackingItem
	decode(t, rec, &passport)
	rec = ts.do(t, http.MethodPost, "/trip/checklist", token, map[string]any{"item": "Charger"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/trip/checklist?tab=common", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list handler.CheckListResponse
	decode(t, rec, &list)
	assert.Equal(t, []string{"common", "Aki", "Ben", "extra"}, list.Tabs)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Charger", list.Data[0].Item, "an empty assignee lands in common")

	rec = ts.do(t, http.MethodPost, "/trip/checklist/"+passport.ID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled handler.ToggleResponse
	decode(t, rec, &toggled)
	assert.True(t, toggled.Checked)

	rec = ts.do(t, http.MethodDelete, "/trip/checklist/"+passport.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/trip/checklist", token, nil)
	decode(t, rec, &list)
	require.Len(t, list.Data, 1, "no tab lists every item")

	rec = ts.do(t, http.MethodPost, "/trip/checklist/"+passport.ID+"/toggle", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPacking_Add_422_BlankItem(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, "Aki")
	ts.createTrip(t, token, "Aki")

	rec := ts.do(t, http.MethodPost, "/trip/checklist", token, map[string]any{"item": ""})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckListTabs_Replace(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, "Aki")
	ts.createTrip(t, token, "Aki", "Ben")

	rec := ts.do(t, http.MethodPut, "/trip/checklist-tabs", token, map[string]any{"tabs": []string{"Ben", "common"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/trip/checklist", token, nil)
	var list handler.CheckListResponse
	decode(t, rec, &list)
	assert.Equal(t, []string{"Ben", "common"}, list.Tabs)

	rec = ts.do(t, http.MethodPut, "/trip/checklist-tabs", token, map[string]any{"tabs": []string{""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
