package main

import (
	"context"
	"encoding/json"
	"fmt"
)

type optsStatus struct {
	optsGeneral
	optsBroker

	ID string `long:"id" required:"true" description:"Job id to look up"`
}

func (c *optsStatus) Execute(args []string) error {
	bk, err := c.connect()
	if err != nil {
		return err
	}
	defer bk.Close()

	rec, err := bk.Status(context.Background(), c.ID)
	if err != nil {
		return err
	}
	if len(rec) == 0 {
		return fmt.Errorf("no status record for job %s", c.ID)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
