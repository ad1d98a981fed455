package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/dmitrijs2005/recordbase"
)

// getMultiline is an indirection used to facilitate testing.
var getMultiline = GetMultiline

func (a *App) recordAPI(name string) *recordbase.RecordAPI[json.RawMessage] {
	return recordbase.Records[json.RawMessage](a.client, name)
}

// List prompts for a collection name and an optional ordering and prints the
// first page of records, one JSON document per line.
func (a *App) List(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Collection API name", a.out)
	if err != nil {
		return err
	}
	order, err := getSimpleText(a.reader, "Order columns, comma separated, -col for descending (empty for server default)", a.out)
	if err != nil {
		return err
	}

	args := &recordbase.ListArguments{Count: true}
	if order != "" {
		for _, col := range strings.Split(order, ",") {
			args.Order = append(args.Order, strings.TrimSpace(col))
		}
	}

	resp, err := a.recordAPI(name).List(ctx, args)
	if err != nil {
		log.Printf("List unsuccessful: %s", err.Error())
		return err
	}

	for _, record := range resp.Records {
		fmt.Fprintln(a.out, string(record))
	}
	if resp.TotalCount != nil {
		fmt.Fprintf(a.out, "total: %d\n", *resp.TotalCount)
	}
	return nil
}

// Create prompts for a collection name and a JSON body and creates the record.
func (a *App) Create(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Collection API name", a.out)
	if err != nil {
		return err
	}
	body, err := getMultiline(a.reader, "Record JSON", a.out)
	if err != nil {
		return err
	}
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("not valid JSON: %q", body)
	}

	id, err := a.recordAPI(name).Create(ctx, json.RawMessage(body))
	if err != nil {
		log.Printf("Create unsuccessful: %s", err.Error())
		return err
	}
	fmt.Fprintf(a.out, "created: %s\n", id.String())
	return nil
}

// Read prompts for a collection name and a record id and prints the record.
func (a *App) Read(ctx context.Context) error {
	name, id, err := a.promptTarget()
	if err != nil {
		return err
	}

	record, err := a.recordAPI(name).Read(ctx, id)
	if err != nil {
		log.Printf("Read unsuccessful: %s", err.Error())
		return err
	}
	fmt.Fprintln(a.out, string(*record))
	return nil
}

// Update prompts for a collection name, a record id and a partial JSON body
// and applies the update.
func (a *App) Update(ctx context.Context) error {
	name, id, err := a.promptTarget()
	if err != nil {
		return err
	}
	body, err := getMultiline(a.reader, "Fields to update, JSON", a.out)
	if err != nil {
		return err
	}
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("not valid JSON: %q", body)
	}

	if err := a.recordAPI(name).Update(ctx, id, json.RawMessage(body)); err != nil {
		log.Printf("Update unsuccessful: %s", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "updated")
	return nil
}

// Delete prompts for a collection name and a record id and deletes the record.
func (a *App) Delete(ctx context.Context) error {
	name, id, err := a.promptTarget()
	if err != nil {
		return err
	}

	if err := a.recordAPI(name).Delete(ctx, id); err != nil {
		log.Printf("Delete unsuccessful: %s", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "deleted")
	return nil
}

// Watch subscribes to change events for a single record and prints them as
// they arrive. Pressing Enter stops the subscription.
func (a *App) Watch(ctx context.Context) error {
	name, id, err := a.promptTarget()
	if err != nil {
		return err
	}

	sub, err := a.recordAPI(name).Subscribe(ctx, id)
	if err != nil {
		log.Printf("Subscribe unsuccessful: %s", err.Error())
		return err
	}
	defer sub.Close()

	fmt.Fprintln(a.out, "Watching; press Enter to stop")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			event, err := sub.Next()
			if err != nil {
				return
			}
			fmt.Fprintln(a.out, string(event.Record()))
		}
	}()

	_, _ = a.reader.ReadString('\n')
	sub.Close()
	<-done
	return nil
}

func (a *App) promptTarget() (string, recordbase.RecordID, error) {
	name, err := getSimpleText(a.reader, "Collection API name", a.out)
	if err != nil {
		return "", nil, err
	}
	id, err := getSimpleText(a.reader, "Record id", a.out)
	if err != nil {
		return "", nil, err
	}
	return name, recordbase.StringID(id), nil
}
