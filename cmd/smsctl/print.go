package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/LeventeLantos/modem-sms/internal/export"
	"github.com/LeventeLantos/modem-sms/internal/model"
)

func printMessages(w io.Writer, source string, msgs []model.Message) {
	rule := strings.Repeat("-", 80)
	if source != "" {
		fmt.Fprintf(w, "%s:\n", source)
	}
	fmt.Fprintf(w, "Found %d messages\n", len(msgs))
	fmt.Fprintln(w, rule)
	for i, m := range msgs {
		fmt.Fprintf(w, "Message #%d:\n", i+1)
		fmt.Fprintf(w, "ID: %s\n", orNA(m.ID))
		fmt.Fprintf(w, "Contact ID: %s\n", orNA(m.ContactID))
		fmt.Fprintf(w, "From: %s\n", export.From(m))
		fmt.Fprintf(w, "Time: %s\n", m.Timestamp)
		fmt.Fprintf(w, "Type: %s\n", m.Direction)
		fmt.Fprintf(w, "Status: %s\n", m.Status)
		fmt.Fprintf(w, "Content: %s\n", m.Body)
		fmt.Fprintln(w, rule)
	}
}

func orNA(id model.ID) string {
	if id.String() == "" {
		return "N/A"
	}
	return id.String()
}
