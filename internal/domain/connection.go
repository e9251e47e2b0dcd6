package domain

import "context"

// ConnectionState is the wallet's link to the session. Account and ChainID are
// set only while Connected is true.
type ConnectionState struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
	ChainID   uint64 `json:"chain_id,omitempty"`
}

// Normalize clears the identifiers of a disconnected state.
func (s ConnectionState) Normalize() ConnectionState {
	if !s.Connected {
		return ConnectionState{}
	}
	return s
}

// WalletService is the external wallet-connection provider. Subscribe delivers
// every state change (connect, disconnect, account or chain switch) and
// returns a function that removes the listener.
type WalletService interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	State() ConnectionState
	Subscribe(fn func(ConnectionState)) (unsubscribe func())
}
