////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"fmt"

	"gitlab.com/tradebridge/client/message"
)

// printModel renders message-list changes to the terminal.
type printModel struct{}

func (p *printModel) EntryAdded(entry message.Entry) {
	fmt.Printf("[%s] %d: %s (%s)\n",
		entry.Key(), entry.SenderID, entry.Content, entry.Status)
}

func (p *printModel) EntryUpdated(entry message.Entry) {
	detail := ""
	if entry.Err != "" {
		detail = " - " + entry.Err
	}
	fmt.Printf("[%s] now %s%s\n", entry.Key(), entry.Status, detail)
}

func (p *printModel) EntryRemoved(key string) {
	fmt.Printf("[%s] discarded\n", key)
}
