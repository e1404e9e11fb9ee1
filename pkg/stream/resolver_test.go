package stream

import (
	"context"
	"testing"

	"github.com/driftline/streamgate/pkg/apierror"
	"github.com/driftline/streamgate/pkg/auth"
	"github.com/stretchr/testify/require"
)

type stubLists struct {
	owner bool
	err   error
}

func (s *stubLists) IsListOwner(ctx context.Context, listID string, accountID int64) (bool, error) {
	return s.owner, s.err
}

func TestResolve_User(t *testing.T) {
	r := New(&stubLists{}, "")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Acct: "alice"}, "user", Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:alice"}, res.ChannelIDs)
	require.False(t, res.Options.NeedsFiltering)
}

func TestResolve_UserWithDevice(t *testing.T) {
	r := New(&stubLists{}, "")
	dev := int64(5)
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Acct: "alice", DeviceID: &dev}, "user", Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:alice", "timeline:alice:5"}, res.ChannelIDs)
}

func TestResolve_UserNotification(t *testing.T) {
	r := New(&stubLists{}, "")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Acct: "alice"}, "user:notification", Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:alice"}, res.ChannelIDs)
	require.True(t, res.Options.NotificationOnly)
}

func TestResolve_PublicNeedsFiltering(t *testing.T) {
	r := New(&stubLists{}, "")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Anonymous: true}, "public", Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:public"}, res.ChannelIDs)
	require.True(t, res.Options.NeedsFiltering)
}

func TestResolve_Namespace(t *testing.T) {
	r := New(&stubLists{}, "prod")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Anonymous: true}, "public", Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"prod:timeline:public"}, res.ChannelIDs)
}

func TestResolve_HashtagMissingTag(t *testing.T) {
	r := New(&stubLists{}, "")
	_, err := r.Resolve(context.Background(), &auth.AccountCtx{Anonymous: true}, "hashtag", Params{})
	var werr *apierror.WithCode
	require.ErrorAs(t, err, &werr)
	require.Equal(t, apierror.MissingRequiredParam, werr.Kind)
}

func TestResolve_HashtagLowercased(t *testing.T) {
	r := New(&stubLists{}, "")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Anonymous: true}, "hashtag", Params{Tag: "Art"})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:hashtag:art"}, res.ChannelIDs)
}

func TestResolve_HashtagLocal(t *testing.T) {
	r := New(&stubLists{}, "")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{Anonymous: true}, "hashtag:local", Params{Tag: "Art"})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:hashtag:art:local"}, res.ChannelIDs)
}

func TestResolve_ListMissingParam(t *testing.T) {
	r := New(&stubLists{}, "")
	_, err := r.Resolve(context.Background(), &auth.AccountCtx{AccountID: 1}, "list", Params{})
	var werr *apierror.WithCode
	require.ErrorAs(t, err, &werr)
	require.Equal(t, apierror.MissingRequiredParam, werr.Kind)
}

func TestResolve_ListNotOwned(t *testing.T) {
	r := New(&stubLists{owner: false}, "")
	_, err := r.Resolve(context.Background(), &auth.AccountCtx{AccountID: 1}, "list", Params{ListID: "99"})
	var werr *apierror.WithCode
	require.ErrorAs(t, err, &werr)
	require.Equal(t, apierror.ListNotAuthorized, werr.Kind)
	require.Equal(t, 404, werr.Status)
}

func TestResolve_ListOwned(t *testing.T) {
	r := New(&stubLists{owner: true}, "")
	res, err := r.Resolve(context.Background(), &auth.AccountCtx{AccountID: 1}, "list", Params{ListID: "99"})
	require.NoError(t, err)
	require.Equal(t, []string{"timeline:list:99"}, res.ChannelIDs)
}

func TestResolve_Unknown(t *testing.T) {
	r := New(&stubLists{}, "")
	_, err := r.Resolve(context.Background(), &auth.AccountCtx{Anonymous: true}, "bogus", Params{})
	var werr *apierror.WithCode
	require.ErrorAs(t, err, &werr)
	require.Equal(t, apierror.UnknownStream, werr.Kind)
}

func TestRequiredScopes(t *testing.T) {
	require.Equal(t, auth.ScopesNotification, RequiredScopes("user:notification"))
	require.Equal(t, auth.ScopesPublicStatuses, RequiredScopes("public"))
	require.Equal(t, auth.ScopesDefault, RequiredScopes("user"))
}
