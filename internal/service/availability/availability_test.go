package availability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-appointment-service/internal/models"
)

var jan10 = civil.Date{Year: 2024, Month: time.January, Day: 10}

func record(t *testing.T, id, office string, hour, minute, duration int) models.Record {
	t.Helper()
	tm := models.ClockTime{Hour: hour, Minute: minute}
	d := jan10
	r, err := models.NewRecord(id, models.Fields{
		PatientID:  "1",
		OfficeID:   office,
		ServiceIDs: []string{"1"},
		Date:       &d,
		Time:       &tm,
		Duration:   duration,
	}, time.UTC, time.Now())
	require.NoError(t, err)
	return r
}

func candidate(hour, minute, duration int, office string) Candidate {
	return Candidate{Date: jan10, Time: models.ClockTime{Hour: hour, Minute: minute}, Duration: duration, OfficeID: office}
}

type stubLister struct {
	records []models.Record
	err     error
}

func (s stubLister) List(context.Context) ([]models.Record, error) {
	return s.records, s.err
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 10, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name                   string
		aStart, aEnd, bS, bEnd time.Time
		want                   bool
	}{
		{"partial overlap", at(9, 15), at(9, 45), at(9, 0), at(9, 30), true},
		{"contained", at(9, 5), at(9, 10), at(9, 0), at(9, 30), true},
		{"containing", at(8, 0), at(10, 0), at(9, 0), at(9, 30), true},
		{"identical", at(9, 0), at(9, 30), at(9, 0), at(9, 30), true},
		{"back to back after", at(9, 30), at(10, 0), at(9, 0), at(9, 30), false},
		{"back to back before", at(8, 30), at(9, 0), at(9, 0), at(9, 30), false},
		{"disjoint", at(11, 0), at(11, 30), at(9, 0), at(9, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bS, tt.bEnd))
		})
	}
}

func TestAvailable_OverlapRejected(t *testing.T) {
	existing := []models.Record{record(t, "a", "1", 9, 0, 30)}
	assert.False(t, Available(candidate(9, 15, 30, "1"), existing, "", ScopeGlobal, time.UTC))
}

func TestAvailable_BackToBack(t *testing.T) {
	existing := []models.Record{record(t, "a", "1", 9, 30, 30)}
	for _, d := range []int{5, 30, 240} {
		assert.True(t, Available(candidate(10, 0, d, "1"), existing, "", ScopeGlobal, time.UTC), "duration %d", d)
	}
	assert.True(t, Available(candidate(9, 0, 30, "1"), existing, "", ScopeGlobal, time.UTC))
}

func TestAvailable_ExcludeSelf(t *testing.T) {
	r := record(t, "a", "1", 9, 0, 30)
	existing := []models.Record{r}
	own := Candidate{Date: r.Date, Time: r.Time, Duration: r.Duration, OfficeID: r.OfficeID}

	assert.False(t, Available(own, existing, "", ScopeGlobal, time.UTC))
	assert.True(t, Available(own, existing, "a", ScopeGlobal, time.UTC))
	assert.False(t, Available(own, existing, "b", ScopeGlobal, time.UTC))
}

func TestAvailable_Scope(t *testing.T) {
	existing := []models.Record{record(t, "a", "1", 9, 0, 30)}
	cand := candidate(9, 0, 30, "2")

	assert.False(t, Available(cand, existing, "", ScopeGlobal, time.UTC))
	assert.True(t, Available(cand, existing, "", ScopeOffice, time.UTC))
	assert.False(t, Available(candidate(9, 0, 30, "1"), existing, "", ScopeOffice, time.UTC))
}

func TestAvailable_OtherDay(t *testing.T) {
	existing := []models.Record{record(t, "a", "1", 9, 0, 30)}
	cand := candidate(9, 0, 30, "1")
	cand.Date = jan10.AddDays(1)
	assert.True(t, Available(cand, existing, "", ScopeGlobal, time.UTC))
}

func TestConflicts_ReturnsOffenders(t *testing.T) {
	existing := []models.Record{
		record(t, "a", "1", 9, 0, 30),
		record(t, "b", "1", 9, 30, 30),
		record(t, "c", "1", 11, 0, 30),
	}
	got := Conflicts(candidate(9, 15, 30, "1"), existing, "", ScopeGlobal, time.UTC)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestChecker_IsAvailable(t *testing.T) {
	store := stubLister{records: []models.Record{record(t, "a", "1", 9, 0, 30)}}
	c := NewChecker(store, ScopeGlobal, nil, nil)

	ok, err := c.IsAvailable(context.Background(), candidate(9, 15, 30, "1"), "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsAvailable(context.Background(), candidate(9, 30, 30, "1"), "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChecker_StoreError(t *testing.T) {
	boom := errors.New("boom")
	c := NewChecker(stubLister{err: boom}, ScopeGlobal, time.UTC, nil)

	_, err := c.IsAvailable(context.Background(), candidate(9, 0, 30, "1"), "")
	assert.ErrorIs(t, err, boom)
}

func TestChecker_RejectsShortDuration(t *testing.T) {
	c := NewChecker(stubLister{}, ScopeGlobal, time.UTC, nil)
	_, err := c.IsAvailable(context.Background(), candidate(9, 0, 4, "1"), "")
	assert.Error(t, err)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)

	s, err = ParseScope("office")
	require.NoError(t, err)
	assert.Equal(t, ScopeOffice, s)

	_, err = ParseScope("room")
	assert.Error(t, err)

	assert.Equal(t, "appointments", ScopeGlobal.Key("2"))
	assert.Equal(t, "appointments:office:2", ScopeOffice.Key("2"))
}

func TestRequest_Candidate(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-10","time":"09:30","duration":45,"officeId":"2"}`), &req))

	c, err := req.Candidate()
	require.NoError(t, err)
	assert.Equal(t, candidate(9, 30, 45, "2"), c)
}

func TestRequest_CandidateRejectsMissingFields(t *testing.T) {
	tm := models.ClockTime{Hour: 9}
	d := jan10

	tests := []struct {
		name string
		req  Request
	}{
		{"no date", Request{Time: &tm, Duration: 30}},
		{"no time", Request{Date: &d, Duration: 30}},
		{"short", Request{Date: &d, Time: &tm, Duration: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Candidate()
			assert.Error(t, err)
		})
	}
}
