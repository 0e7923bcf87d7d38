package call

import (
	"testing"

	"chat-gateway/errors"

	"github.com/stretchr/testify/require"
)

func TestSession_Transitions(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		path    []State
		wantErr bool
	}{
		{"Full call lifecycle", []State{Ringing, Active, Ended}, false},
		{"Rejected while ringing", []State{Ringing, Ended}, false},
		{"Callee offline, never rings", []State{Ended}, false},
		{"Answer before ring", []State{Active}, true},
		{"Ring twice", []State{Ringing, Ringing}, true},
		{"Answer twice", []State{Ringing, Active, Active}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("alice", "bob")
			var err error
			for _, next := range tt.path {
				err = s.Transition(next)
				if err != nil {
					break
				}
			}
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidTransition)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestSession_EndedIsAlwaysReachable(t *testing.T) {
	req := require.New(t)

	for _, from := range []State{Idle, Ringing, Active, Ended} {
		s := NewSession("alice", "bob")
		s.state = from
		req.NoError(s.Transition(Ended))
		req.Equal(Ended, s.State())
		req.False(s.Live())
	}
}

func TestKey_IsUnordered(t *testing.T) {
	req := require.New(t)
	req.Equal(NewKey("alice", "bob"), NewKey("bob", "alice"))
	req.NotEqual(NewKey("alice", "bob"), NewKey("alice", "clara"))
}

func TestSession_Peer(t *testing.T) {
	req := require.New(t)
	s := NewSession("alice", "bob")
	req.Equal("bob", s.Peer("alice"))
	req.Equal("alice", s.Peer("bob"))
}
