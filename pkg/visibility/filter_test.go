package visibility

import (
	"context"
	"testing"

	"github.com/driftline/streamgate/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	blockedOrMuted bool
	domainBlocked  bool
	err            error
}

func (s *stubStore) BlockedOrMuted(ctx context.Context, viewerID int64, targets []int64, authorID int64) (bool, error) {
	return s.blockedOrMuted, s.err
}

func (s *stubStore) DomainBlocked(ctx context.Context, viewerID int64, domain string) (bool, error) {
	return s.domainBlocked, s.err
}

func TestDecide_NotificationOnlyDropsNonNotification(t *testing.T) {
	f := New(&stubStore{}, nil, nil)
	allow, err := f.Decide(context.Background(), Viewer{}, Options{NotificationOnly: true}, "update", nil)
	require.NoError(t, err)
	require.False(t, allow)
}

func TestDecide_NotificationRequiresAllowFlag(t *testing.T) {
	f := New(&stubStore{}, nil, nil)
	allow, err := f.Decide(context.Background(), Viewer{AllowNotifications: false}, Options{}, "notification", nil)
	require.NoError(t, err)
	require.False(t, allow)

	allow, err = f.Decide(context.Background(), Viewer{AllowNotifications: true}, Options{NotificationOnly: true}, "notification", nil)
	require.NoError(t, err)
	require.True(t, allow)
}

func TestDecide_UnfilteredStreamDeliversAnything(t *testing.T) {
	f := New(&stubStore{}, nil, nil)
	allow, err := f.Decide(context.Background(), Viewer{}, Options{NeedsFiltering: false}, "update", []byte(`{}`))
	require.NoError(t, err)
	require.True(t, allow)
}

func TestDecide_NonUpdateEventBypassesFilter(t *testing.T) {
	f := New(&stubStore{blockedOrMuted: true}, nil, nil)
	allow, err := f.Decide(context.Background(), Viewer{AccountID: 1}, Options{NeedsFiltering: true}, "delete", []byte(`"1"`))
	require.NoError(t, err)
	require.True(t, allow)
}

func statusPayload(lang, authorID, authorAcct string) []byte {
	l := `"` + lang + `"`
	if lang == "" {
		l = "null"
	}
	return []byte(`{"language":` + l + `,"account":{"id":"` + authorID + `","acct":"` + authorAcct + `"},"mentions":[]}`)
}

func TestDecide_LanguageFilter(t *testing.T) {
	f := New(&stubStore{}, nil, nil)
	viewer := Viewer{AccountID: 42, ChosenLanguages: []string{"fr"}}
	allow, err := f.Decide(context.Background(), viewer, Options{NeedsFiltering: true}, "update", statusPayload("en", "7", "a"))
	require.NoError(t, err)
	require.False(t, allow)
}

func TestDecide_AnonymousDeliversAfterLanguageCheck(t *testing.T) {
	f := New(&stubStore{}, nil, nil)
	allow, err := f.Decide(context.Background(), Viewer{Anonymous: true}, Options{NeedsFiltering: true}, "update", statusPayload("en", "7", "a"))
	require.NoError(t, err)
	require.True(t, allow)
}

func TestDecide_BlockDrops(t *testing.T) {
	f := New(&stubStore{blockedOrMuted: true}, nil, nil)
	viewer := Viewer{AccountID: 42}
	allow, err := f.Decide(context.Background(), viewer, Options{NeedsFiltering: true}, "update", statusPayload("en", "7", "a"))
	require.NoError(t, err)
	require.False(t, allow)
}

func TestDecide_DomainBlockDrops(t *testing.T) {
	f := New(&stubStore{domainBlocked: true}, nil, nil)
	viewer := Viewer{AccountID: 42}
	allow, err := f.Decide(context.Background(), viewer, Options{NeedsFiltering: true}, "update", statusPayload("en", "7", "a@evil.example"))
	require.NoError(t, err)
	require.False(t, allow)
}

func TestDecide_LocalAuthorSkipsDomainCheck(t *testing.T) {
	store := &stubStore{domainBlocked: true}
	f := New(store, nil, nil)
	viewer := Viewer{AccountID: 42}
	allow, err := f.Decide(context.Background(), viewer, Options{NeedsFiltering: true}, "update", statusPayload("en", "7", "a"))
	require.NoError(t, err)
	require.True(t, allow)
}

func TestDecide_StoreErrorFailsClosed(t *testing.T) {
	f := New(&stubStore{err: errBoom}, nil, nil)
	viewer := Viewer{AccountID: 42}
	allow, err := f.Decide(context.Background(), viewer, Options{NeedsFiltering: true}, "update", statusPayload("en", "7", "a"))
	require.Error(t, err)
	require.False(t, allow)
}

func TestDecide_DropIncrementsFilterDropsMetric(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	f := New(&stubStore{}, nil, reg)

	allow, err := f.Decide(context.Background(), Viewer{}, Options{NotificationOnly: true}, "update", nil)
	require.NoError(t, err)
	require.False(t, allow)
	require.Equal(t, float64(1), testutil.ToFloat64(reg.FilterDrops.WithLabelValues("notification_only")))
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
