////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package main is a terminal harness for the messaging core, used to
// exercise a broker manually: it connects, joins one conversation, prints
// everything that happens in it, and sends stdin lines as messages.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"gitlab.com/tradebridge/client"
	"gitlab.com/tradebridge/client/convo"
	"gitlab.com/tradebridge/client/creds"
	"gitlab.com/tradebridge/client/request"
	"gitlab.com/tradebridge/client/transport"
	"gitlab.com/tradebridge/client/unread"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tbchat",
	Short: "Terminal client for the Trade Bridge messaging broker",
	Run: func(cmd *cobra.Command, args []string) {
		initLog(viper.GetUint("logLevel"), viper.GetString("log"))

		role := convo.Buyer
		if viper.GetString("role") == "supplier" {
			role = convo.Supplier
		}

		params, err := transport.GetParameters(viper.GetString("transport"))
		if err != nil {
			jww.FATAL.Panicf("Bad transport parameters: %+v", err)
		}
		params.URL = viper.GetString("broker")

		store := creds.NewMemStore(viper.GetString("token"))
		net := request.NewClient(viper.GetString("api"), nil, store)

		c := client.New(client.Config{
			UserID:    viper.GetInt64("userid"),
			Role:      role,
			Transport: params,
			OnUnread: func(snapshot unread.Snapshot) {
				fmt.Printf("* unread: %d (%d priority)\n",
					snapshot.Total, snapshot.PriorityTotal)
			},
			OnTyping: func(conversationID int64, userIDs []int64) {
				if len(userIDs) > 0 {
					fmt.Printf("* %v typing in %d...\n",
						userIDs, conversationID)
				}
			},
		}, net, &printModel{}, store)
		defer c.Close()

		if err = c.Connect(context.Background()); err != nil {
			jww.FATAL.Panicf("Failed to connect: %+v", err)
		}

		conversationID := viper.GetInt64("conversation")
		c.OpenConversation(conversationID)
		fmt.Printf("Joined conversation %d; type to send, /quit to exit.\n",
			conversationID)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "/quit" {
				return
			}

			c.Typing(conversationID)
			if err = c.Send(context.Background(),
				conversationID, line, nil); err != nil {
				fmt.Printf("! send rejected: %s\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main(). It only needs to happen once to
// the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initLog(threshold uint, logPath string) {
	if logPath != "-" && logPath != "" {
		// Disable stdout output
		jww.SetStdoutOutput(ioutil.Discard)
		// Use log file
		logOutput, err := os.OpenFile(logPath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err.Error())
		}
		jww.SetLogOutput(logOutput)
	}

	if threshold > 1 {
		jww.SetStdoutThreshold(jww.LevelTrace)
		jww.SetLogThreshold(jww.LevelTrace)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else if threshold == 1 {
		jww.SetStdoutThreshold(jww.LevelDebug)
		jww.SetLogThreshold(jww.LevelDebug)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		jww.SetStdoutThreshold(jww.LevelInfo)
		jww.SetLogThreshold(jww.LevelInfo)
	}
}

// init is the initialization function for Cobra which defines commands and
// flags.
func init() {
	rootCmd.PersistentFlags().UintP("logLevel", "v", 0,
		"Verbosity: 0 = info, 1 = debug, >1 = trace")
	viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("logLevel"))

	rootCmd.PersistentFlags().StringP("log", "l", "-",
		"Path to log file; \"-\" logs to stdout")
	viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))

	rootCmd.Flags().StringP("broker", "b", "ws://localhost:8080/realtime",
		"Websocket endpoint of the messaging broker")
	viper.BindPFlag("broker", rootCmd.Flags().Lookup("broker"))

	rootCmd.Flags().StringP("api", "a", "http://localhost:8080/api",
		"Base URL of the marketplace API")
	viper.BindPFlag("api", rootCmd.Flags().Lookup("api"))

	rootCmd.Flags().StringP("token", "t", "",
		"Bearer credential for the session")
	viper.BindPFlag("token", rootCmd.Flags().Lookup("token"))

	rootCmd.Flags().Int64P("userid", "u", 0,
		"Local user identity")
	viper.BindPFlag("userid", rootCmd.Flags().Lookup("userid"))

	rootCmd.Flags().StringP("role", "r", "buyer",
		"Side of the conversation: buyer or supplier")
	viper.BindPFlag("role", rootCmd.Flags().Lookup("role"))

	rootCmd.Flags().Int64P("conversation", "c", 0,
		"Conversation to join")
	viper.BindPFlag("conversation", rootCmd.Flags().Lookup("conversation"))

	rootCmd.Flags().StringP("transport", "", "",
		"JSON override of the transport parameters")
	viper.BindPFlag("transport", rootCmd.Flags().Lookup("transport"))
}
