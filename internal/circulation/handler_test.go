// internal/circulation/handler_test.go
package circulation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librecirc/internal/catalog"
	"librecirc/internal/clock"
	"librecirc/internal/notification"
)

type captureObserver struct {
	events []notification.Event
}

func (o *captureObserver) Notify(event notification.Event) {
	o.events = append(o.events, event)
}

func TestReturnHandlerNotifiesOnFine(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	member := activeMember()
	item := bookItem(3)
	f := newFixture(&clock.Fixed{T: now}, newFakeMembers(member), newFakeCatalog(item))

	due := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	loan := &Loan{
		ID:       uuid.New(),
		MemberID: member.ID,
		ItemID:   item.ID,
		ItemType: catalog.ItemTypeBook,
		DueDate:  due,
	}
	require.NoError(t, f.loans.Save(ctx, loan))

	observer := &captureObserver{}
	handler := NewHandler(f.svc, notification.NewHub(observer))
	server := httptest.NewServer(handler.Routes())
	defer server.Close()

	returnedAt := due.AddDate(0, 0, 10)
	body, err := json.Marshal(map[string]interface{}{
		"loan_id": loan.ID, "return_date": returnedAt,
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/return", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Returned bool  `json:"returned"`
		Fine     *Fine `json:"fine"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotNil(t, result.Fine)

	require.Len(t, observer.events, 1)
	assert.Equal(t, notification.KindFineIssued, observer.events[0].Kind)
	assert.Equal(t, member.ID, observer.events[0].MemberID)
	assert.Contains(t, observer.events[0].Message, "5.00")
}

func TestReturnHandlerStaysQuietOnTimelyReturn(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	member := activeMember()
	item := bookItem(3)
	f := newFixture(&clock.Fixed{T: now}, newFakeMembers(member), newFakeCatalog(item))

	loan := &Loan{
		ID:       uuid.New(),
		MemberID: member.ID,
		ItemID:   item.ID,
		ItemType: catalog.ItemTypeBook,
		DueDate:  now.AddDate(0, 0, 10),
	}
	require.NoError(t, f.loans.Save(ctx, loan))

	observer := &captureObserver{}
	handler := NewHandler(f.svc, notification.NewHub(observer))
	server := httptest.NewServer(handler.Routes())
	defer server.Close()

	body, err := json.Marshal(map[string]interface{}{"loan_id": loan.ID})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/return", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, observer.events)
}
