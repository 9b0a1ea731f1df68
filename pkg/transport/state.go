package transport

import "github.com/qmuntal/stateless"

// PeerState is one of the four states a per-peer connection occupies:
//
//	CONNECTING --ok--> ACTIVE --shutdown--> DRAINING --> CLOSED
//	     |                |                    ^
//	     |                +--peer-loss---------+
//	     +--handshake-fail----------------------------> CLOSED
type PeerState string

const (
	StateConnecting PeerState = "CONNECTING"
	StateActive     PeerState = "ACTIVE"
	StateDraining   PeerState = "DRAINING"
	StateClosed     PeerState = "CLOSED"
)

// PeerTrigger names the events that move a connection between PeerStates.
type PeerTrigger string

const (
	TriggerHandshakeOK   PeerTrigger = "handshake_ok"
	TriggerHandshakeFail PeerTrigger = "handshake_fail"
	TriggerShutdown      PeerTrigger = "shutdown"
	TriggerPeerLoss      PeerTrigger = "peer_loss"
	TriggerDrained       PeerTrigger = "drained"
)

// newPeerStateMachine builds the state machine for one per-peer connection,
// built on github.com/qmuntal/stateless rather than a hand-rolled switch.
func newPeerStateMachine() *stateless.StateMachine {
	sm := stateless.NewStateMachine(StateConnecting)

	sm.Configure(StateConnecting).
		Permit(TriggerHandshakeOK, StateActive).
		Permit(TriggerHandshakeFail, StateClosed)

	sm.Configure(StateActive).
		Permit(TriggerShutdown, StateDraining).
		Permit(TriggerPeerLoss, StateDraining)

	sm.Configure(StateDraining).
		Permit(TriggerDrained, StateClosed)

	sm.Configure(StateClosed)

	return sm
}
