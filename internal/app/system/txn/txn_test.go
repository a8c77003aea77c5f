package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset by peer"), false},
		{"code 20", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"code 263", mongo.CommandError{Code: 263, Message: "operation not supported in a transaction"}, true},
		{"duplicate key", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}, false},
		{"replica set text", errors.New("Transaction requires a REPLICA SET"), true},
		{"session text", errors.New("sessions are not supported by the deployment"), true},
		{"wrapped", fmt.Errorf("save users: %w", mongo.CommandError{Code: 20}), true},
		{"transaction alone", errors.New("transaction aborted"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
