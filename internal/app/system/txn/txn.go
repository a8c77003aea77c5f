// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a MongoDB transaction. On deployments without
// transaction support (standalone mongod, some DocumentDB setups) it logs
// once per call and runs fn directly instead.
//
// fn may be retried by the driver on transient errors, so it must only
// touch the database; in-memory bookkeeping belongs after Run returns.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Debug("sessions not supported; running without transaction", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Warn("transactions not supported; running without transaction", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation family and OperationNotSupportedInTransaction
			return true
		}
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "transaction") && strings.Contains(s, "replica set"):
		return true
	case strings.Contains(s, "transaction") && strings.Contains(s, "session"):
		return true
	case strings.Contains(s, "session") && strings.Contains(s, "not supported"):
		return true
	case strings.Contains(s, "illegal operation"):
		return true
	}
	return false
}
