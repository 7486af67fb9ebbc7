// Command redcap runs one-off exports against a REDCap project configured
// through REDCAP_* environment variables, printing the result to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clindata/redcap"
)

func main() {
	action := flag.String("action", "records", "What to export: records, metadata, events, participants, survey-link")
	fields := flag.String("fields", "", "Comma-separated field filter for record exports")
	forms := flag.String("forms", "", "Comma-separated form filter")
	events := flag.String("events", "", "Comma-separated event filter for record exports")
	instrument := flag.String("instrument", "", "Instrument name for survey actions")
	event := flag.String("event", "", "Event name for survey actions")
	record := flag.String("record", "", "Record id for survey-link")
	flag.Parse()

	client, err := redcap.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "redcap: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := run(ctx, client, *action, *fields, *forms, *events, *instrument, *event, *record)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redcap: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "redcap: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *redcap.Client, action, fields, forms, events, instrument, event, record string) (interface{}, error) {
	switch action {
	case "records":
		return client.ExportRecords(ctx, &redcap.ExportRecordsOptions{
			Fields: fields,
			Forms:  forms,
			Events: events,
		})
	case "metadata":
		return client.ExportDataDictionary(ctx, &redcap.ExportMetadataOptions{
			Fields: fields,
			Forms:  forms,
		})
	case "events":
		return client.ExportEvents(ctx, nil)
	case "participants":
		return client.ExportSurveyParticipants(ctx, instrument, event, nil)
	case "survey-link":
		link, err := client.ExportSurveyLink(ctx, instrument, event, record, nil)
		if err != nil {
			return nil, err
		}
		return link, nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}
