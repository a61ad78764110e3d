package eventstore

import (
	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

// Sentinel errors for event store operations; returned errors match them with errors.Is.
var (
	ErrDatabaseOpenFailed     = foundationerrors.EventStoreError("could not open event store database").Build()
	ErrInitializeSchemaFailed = foundationerrors.EventStoreError("failed to initialize event store schema").Build()
	ErrEventAppendFailed      = foundationerrors.EventStoreError("failed to append event to store").Build()
	ErrEventQueryFailed       = foundationerrors.EventStoreError("failed to query events from store").Build()
	ErrEventPruneFailed       = foundationerrors.EventStoreError("failed to prune events").Build()
	ErrMarshalPayloadFailed   = foundationerrors.EventStoreError("failed to marshal event payload").Build()
)

func storeError(sentinel *foundationerrors.ClassifiedError, cause error) error {
	return foundationerrors.EventStoreError(sentinel.Message()).WithCause(cause).Build()
}
