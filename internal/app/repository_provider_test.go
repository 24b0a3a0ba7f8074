package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
)

type providerFixture struct {
	holder      *AuthStateHolder
	localHikes  *mockHikeRepository
	localObs    *mockObservationRepository
	remoteHikes *mockHikeRepository
	remoteObs   *mockObservationRepository
	provider    *RepositoryProviderImpl
}

func newProviderFixture() *providerFixture {
	f := &providerFixture{
		holder:      NewAuthStateHolder(),
		localHikes:  newMockHikeRepository("HIKE-"),
		localObs:    newMockObservationRepository("OBS-"),
		remoteHikes: newMockHikeRepository("rh-"),
		remoteObs:   newMockObservationRepository("ro-"),
	}
	f.provider = NewRepositoryProvider(f.holder, f.localHikes, f.localObs, f.remoteHikes, f.remoteObs)
	return f
}

func TestRepositoryProvider_SelectsByState(t *testing.T) {
	tests := []struct {
		name       string
		state      auth.State
		wantRemote bool
	}{
		{"unauthenticated", auth.Unauthenticated{}, false},
		{"guest", auth.Guest{GuestID: "guest-1"}, false},
		{"authenticated", auth.Authenticated{User: auth.User{ID: "user-1"}}, true},
		{"authenticated without user id", auth.Authenticated{}, false},
		{"nil state", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProviderFixture()
			f.holder.Set(tt.state)

			var wantHikes secondary.HikeRepository = f.localHikes
			var wantObs secondary.ObservationRepository = f.localObs
			wantBackend := auth.BackendLocal
			if tt.wantRemote {
				wantHikes, wantObs, wantBackend = f.remoteHikes, f.remoteObs, auth.BackendRemote
			}

			ctx := context.Background()
			if got := f.provider.Hikes(ctx); got != wantHikes {
				t.Errorf("Hikes() resolved the wrong repository")
			}
			if got := f.provider.Observations(ctx); got != wantObs {
				t.Errorf("Observations() resolved the wrong repository")
			}
			if got := f.provider.HikesSync(); got != wantHikes {
				t.Errorf("HikesSync() resolved the wrong repository")
			}
			if got := f.provider.ObservationsSync(); got != wantObs {
				t.Errorf("ObservationsSync() resolved the wrong repository")
			}

			set := f.provider.Resolve(ctx)
			if set.Hikes != wantHikes || set.Observations != wantObs {
				t.Errorf("Resolve() returned an inconsistent set")
			}
			if set.Backend != wantBackend {
				t.Errorf("Resolve().Backend = %s, want %s", set.Backend, wantBackend)
			}
			if got := f.provider.Backend(primary.FamilyObservation); got != wantBackend {
				t.Errorf("Backend() = %s, want %s", got, wantBackend)
			}
		})
	}
}

func TestRepositoryProvider_WithoutRemoteFallsBackToLocal(t *testing.T) {
	holder := NewAuthStateHolder()
	holder.Set(auth.Authenticated{User: auth.User{ID: "user-1"}})
	localHikes := newMockHikeRepository("HIKE-")
	localObs := newMockObservationRepository("OBS-")
	provider := NewRepositoryProvider(holder, localHikes, localObs, nil, nil)

	set := provider.Resolve(context.Background())

	if set.Backend != auth.BackendLocal {
		t.Errorf("Backend = %s, want local", set.Backend)
	}
	if set.Hikes != secondary.HikeRepository(localHikes) {
		t.Error("expected the local hike repository")
	}
	if _, ok := set.State.(auth.Authenticated); !ok {
		t.Errorf("State = %T, want the state that was read", set.State)
	}
}

func TestRepositoryProvider_HalfConfiguredRemoteStaysLocal(t *testing.T) {
	tests := []struct {
		name        string
		remoteHikes secondary.HikeRepository
		remoteObs   secondary.ObservationRepository
	}{
		{"hikes only", newMockHikeRepository("rh-"), nil},
		{"observations only", nil, newMockObservationRepository("ro-")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holder := NewAuthStateHolder()
			holder.Set(auth.Authenticated{User: auth.User{ID: "user-1"}})
			localHikes := newMockHikeRepository("HIKE-")
			localObs := newMockObservationRepository("OBS-")
			provider := NewRepositoryProvider(holder, localHikes, localObs, tt.remoteHikes, tt.remoteObs)

			set := provider.Resolve(context.Background())

			if set.Backend != auth.BackendLocal {
				t.Errorf("Backend = %s, want local", set.Backend)
			}
			if set.Hikes != secondary.HikeRepository(localHikes) {
				t.Error("expected the local hike repository")
			}
			if set.Observations != secondary.ObservationRepository(localObs) {
				t.Error("expected the local observation repository")
			}
			for _, family := range []primary.EntityFamily{primary.FamilyHike, primary.FamilyObservation} {
				if got := provider.Backend(family); got != auth.BackendLocal {
					t.Errorf("Backend(%s) = %s, want local", family, got)
				}
			}
		})
	}
}

// A resolved set never mixes backends, however often the state flips.
func TestRepositoryProvider_ResolveIsConsistentUnderStateFlips(t *testing.T) {
	f := newProviderFixture()
	guest := auth.Guest{GuestID: "guest-1"}
	user := auth.Authenticated{User: auth.User{ID: "user-1"}}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				f.holder.Set(guest)
			} else {
				f.holder.Set(user)
			}
		}
	}()

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		set := f.provider.Resolve(context.Background())
		localHikes := set.Hikes == secondary.HikeRepository(f.localHikes)
		localObs := set.Observations == secondary.ObservationRepository(f.localObs)
		if localHikes != localObs {
			t.Fatal("Resolve() mixed local and remote repositories")
		}
		if localHikes != (set.Backend == auth.BackendLocal) {
			t.Fatal("Resolve().Backend disagrees with the repositories")
		}
	}
	close(stop)
	wg.Wait()
}

func TestAuthStateHolder_SubscribeYieldsCurrentThenUpdates(t *testing.T) {
	holder := NewAuthStateHolder()
	holder.Set(auth.Guest{GuestID: "guest-1"})

	sub := holder.Subscribe()
	defer sub.Close()

	first := <-sub.C()
	if g, ok := first.(auth.Guest); !ok || g.GuestID != "guest-1" {
		t.Fatalf("first state = %#v, want the current guest", first)
	}

	holder.Set(auth.Authenticated{User: auth.User{ID: "user-1"}})
	select {
	case next := <-sub.C():
		if _, ok := next.(auth.Authenticated); !ok {
			t.Errorf("next state = %#v, want Authenticated", next)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	if _, ok := holder.Current().(auth.Authenticated); !ok {
		t.Errorf("Current() = %#v", holder.Current())
	}
}

func TestAuthStateHolder_SlowSubscriberSeesLatest(t *testing.T) {
	holder := NewAuthStateHolder()
	sub := holder.Subscribe()
	defer sub.Close()

	holder.Set(auth.Guest{GuestID: "a"})
	holder.Set(auth.Guest{GuestID: "b"})
	holder.Set(auth.Guest{GuestID: "c"})

	got := <-sub.C()
	if g, ok := got.(auth.Guest); !ok || g.GuestID != "c" {
		t.Errorf("got %#v, want guest c", got)
	}
}

func TestAuthStateHolder_CloseEndsSubscriptions(t *testing.T) {
	holder := NewAuthStateHolder()
	sub := holder.Subscribe()
	<-sub.C()

	holder.Close()

	if _, ok := <-sub.C(); ok {
		t.Error("expected the subscription channel to be closed")
	}
	holder.Set(nil)
	if _, ok := holder.Current().(auth.Unauthenticated); !ok {
		t.Errorf("Current() = %#v, want Unauthenticated for a nil state", holder.Current())
	}
}
