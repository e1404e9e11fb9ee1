// Package stream implements the Stream Resolver: a pure mapping from a
// logical stream name and its parameters to the set of upstream channel
// ids and per-channel options the Upstream Bus Adapter and Visibility
// Filter need.
package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftline/streamgate/pkg/apierror"
	"github.com/driftline/streamgate/pkg/auth"
	"github.com/driftline/streamgate/pkg/visibility"
)

// Resolution is the outcome of resolving a logical stream.
type Resolution struct {
	ChannelIDs []string
	Options    visibility.Options
}

// ListAuthorizer checks list ownership; satisfied by store.Store.
type ListAuthorizer interface {
	IsListOwner(ctx context.Context, listID string, accountID int64) (bool, error)
}

// Params carries the query parameters a stream request may need.
type Params struct {
	Tag    string
	ListID string
}

// Resolver resolves logical stream names, applying the configured
// channel-id namespace prefix before returning them.
type Resolver struct {
	lists     ListAuthorizer
	namespace string
}

func New(lists ListAuthorizer, namespace string) *Resolver {
	return &Resolver{lists: lists, namespace: namespace}
}

// Resolve maps streamName+params for viewer into a Resolution, or returns
// an *apierror.WithCode rejection (unknown-stream, missing-required-param,
// or list-not-authorized).
func (r *Resolver) Resolve(ctx context.Context, viewer *auth.AccountCtx, streamName string, params Params) (*Resolution, error) {
	switch streamName {
	case "user":
		ids := []string{r.prefix("timeline:" + viewer.Acct)}
		if viewer.DeviceID != nil {
			ids = append(ids, r.prefix(fmt.Sprintf("timeline:%s:%d", viewer.Acct, *viewer.DeviceID)))
		}
		return &Resolution{ChannelIDs: ids, Options: visibility.Options{}}, nil

	case "user:notification":
		return &Resolution{
			ChannelIDs: []string{r.prefix("timeline:" + viewer.Acct)},
			Options:    visibility.Options{NotificationOnly: true},
		}, nil

	case "public":
		return r.filtered("timeline:public"), nil
	case "public:media":
		return r.filtered("timeline:public:media"), nil
	case "public:local":
		return r.filtered("timeline:public:local"), nil
	case "public:local:media":
		return r.filtered("timeline:public:local:media"), nil
	case "public:remote":
		return r.filtered("timeline:public:remote"), nil
	case "public:remote:media":
		return r.filtered("timeline:public:remote:media"), nil

	case "direct":
		return &Resolution{ChannelIDs: []string{r.prefix("timeline:direct:" + viewer.Acct)}}, nil

	case "hashtag":
		if params.Tag == "" {
			return nil, apierror.New(apierror.MissingRequiredParam, "Not found")
		}
		return r.filtered(fmt.Sprintf("timeline:hashtag:%s", strings.ToLower(params.Tag))), nil

	case "hashtag:local":
		if params.Tag == "" {
			return nil, apierror.New(apierror.MissingRequiredParam, "Not found")
		}
		return r.filtered(fmt.Sprintf("timeline:hashtag:%s:local", strings.ToLower(params.Tag))), nil

	case "list":
		if params.ListID == "" {
			return nil, apierror.New(apierror.MissingRequiredParam, "Not found")
		}
		ok, err := r.lists.IsListOwner(ctx, params.ListID, viewer.AccountID)
		if err != nil {
			return nil, apierror.New(apierror.ListNotAuthorized, "Not found")
		}
		if !ok {
			return nil, apierror.New(apierror.ListNotAuthorized, "Not found")
		}
		return &Resolution{ChannelIDs: []string{r.prefix("timeline:list:" + params.ListID)}}, nil

	default:
		return nil, apierror.New(apierror.UnknownStream, "Not found")
	}
}

func (r *Resolver) filtered(channel string) *Resolution {
	return &Resolution{
		ChannelIDs: []string{r.prefix(channel)},
		Options:    visibility.Options{NeedsFiltering: true},
	}
}

func (r *Resolver) prefix(channel string) string {
	if r.namespace == "" {
		return channel
	}
	return r.namespace + ":" + channel
}

// RequiredScopes returns the scope set an endpoint needs for streamName,
// per the Auth Resolver's scope-selection table.
func RequiredScopes(streamName string) []string {
	switch streamName {
	case "user:notification":
		return auth.ScopesNotification
	case "public", "public:media", "public:local", "public:local:media", "public:remote", "public:remote:media":
		return auth.ScopesPublicStatuses
	default:
		return auth.ScopesDefault
	}
}

// IsPublicStream reports whether streamName is one of the public streams
// that permit anonymous access.
func IsPublicStream(streamName string) bool {
	switch streamName {
	case "public", "public:media", "public:local", "public:local:media", "public:remote", "public:remote:media",
		"hashtag", "hashtag:local":
		return true
	default:
		return false
	}
}
