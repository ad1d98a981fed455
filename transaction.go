package recordbase

import (
	"context"
	"fmt"
	"net/http"
)

const transactionAPI = "api/transaction/v1/execute"

// The wire format for a batched operation is a tagged union: exactly one of
// the discriminator keys Create/Update/Delete is set.
type createOp struct {
	APIName string `json:"api_name"`
	Value   any    `json:"value"`
}

type updateOp struct {
	APIName  string `json:"api_name"`
	RecordID string `json:"record_id"`
	Value    any    `json:"value"`
}

type deleteOp struct {
	APIName  string `json:"api_name"`
	RecordID string `json:"record_id"`
}

type operation struct {
	Create *createOp `json:"Create,omitempty"`
	Update *updateOp `json:"Update,omitempty"`
	Delete *deleteOp `json:"Delete,omitempty"`
}

type transactionRequest struct {
	Operations []operation `json:"operations"`
}

// TransactionBatch accumulates create/update/delete operations client-side
// and submits them as one atomic request. The server returns one identifier
// per operation, in submission order.
//
//	ids, err := client.Transaction().
//		API("movies").Create(m).
//		API("reviews").Delete(recordbase.IntID(4)).
//		Send(ctx)
type TransactionBatch struct {
	client     *Client
	operations []operation
}

// API scopes subsequent operations to a named collection.
func (b *TransactionBatch) API(name string) *APIBatch {
	return &APIBatch{batch: b, name: name}
}

// Send submits the accumulated operations atomically.
func (b *TransactionBatch) Send(ctx context.Context) ([]RecordID, error) {
	ops := b.operations
	if ops == nil {
		ops = []operation{}
	}
	resp, err := b.client.Do(ctx, http.MethodPost, transactionAPI, transactionRequest{
		Operations: ops,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	defer resp.Body.Close()

	return decodeRecordIDs(resp.Body)
}

// APIBatch appends operations for one collection to its parent batch. Each
// method returns the batch so calls chain across collections.
type APIBatch struct {
	batch *TransactionBatch
	name  string
}

// Create queues an insert.
func (a *APIBatch) Create(value any) *TransactionBatch {
	a.batch.operations = append(a.batch.operations, operation{
		Create: &createOp{APIName: a.name, Value: value},
	})
	return a.batch
}

// Update queues a patch of an existing record.
func (a *APIBatch) Update(id RecordID, value any) *TransactionBatch {
	a.batch.operations = append(a.batch.operations, operation{
		Update: &updateOp{APIName: a.name, RecordID: id.String(), Value: value},
	})
	return a.batch
}

// Delete queues a removal.
func (a *APIBatch) Delete(id RecordID) *TransactionBatch {
	a.batch.operations = append(a.batch.operations, operation{
		Delete: &deleteOp{APIName: a.name, RecordID: id.String()},
	})
	return a.batch
}
