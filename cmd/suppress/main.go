// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"time"

	"participa-scan/internal/detector"
	"participa-scan/internal/suppressions"
)

func main() {
	var (
		suppressionFile = flag.String("suppression-file", "", "Path to suppression file (default: suppressions.yaml in the config directory)")
		action          = flag.String("action", "", "Action to perform: list, add, remove, enable, disable, cleanup, hash")
		id              = flag.String("id", "", "Suppression rule ID (for remove, enable and disable)")
		kind            = flag.String("kind", "", "Data kind, e.g. EMAIL or TELEFONE (for add and hash)")
		value           = flag.String("value", "", "Public value to allowlist (for add and hash)")
		reason          = flag.String("reason", "", "Reason for suppression (for add)")
		expires         = flag.Int("expires-days", 0, "Expire the rule after this many days (for add, 0 = never)")
	)
	flag.Parse()

	if *action == "" {
		fmt.Println("Error: --action is required")
		fmt.Println("Usage: participa-suppress --action <list|add|remove|enable|disable|cleanup|hash> [options]")
		os.Exit(1)
	}

	// hash needs no file
	if *action == "hash" {
		printHash(*kind, *value)
		return
	}

	manager, err := suppressions.NewSuppressionManager(*suppressionFile)
	if err != nil {
		fmt.Printf("Error loading suppressions: %v\n", err)
		os.Exit(1)
	}

	switch *action {
	case "list":
		listSuppressions(manager)
	case "add":
		addSuppression(manager, *kind, *value, *reason, *expires)
	case "remove":
		requireID(*id, "remove")
		removeSuppression(manager, *id)
	case "enable", "disable":
		requireID(*id, *action)
		setEnabled(manager, *id, *action == "enable")
	case "cleanup":
		cleanupExpired(manager)
	default:
		fmt.Printf("Error: Unknown action '%s'\n", *action)
		fmt.Println("Valid actions: list, add, remove, enable, disable, cleanup, hash")
		os.Exit(1)
	}
}

func requireID(id, action string) {
	if id == "" {
		fmt.Printf("Error: --id is required for %s action\n", action)
		os.Exit(1)
	}
}

func parseKind(name string) detector.Kind {
	k, err := detector.ParseKind(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return k
}

func listSuppressions(manager *suppressions.SuppressionManager) {
	rules := manager.ListSuppressions()
	if len(rules) == 0 {
		fmt.Println("No suppression rules found.")
		return
	}

	fmt.Printf("Found %d suppression rules in %s:\n\n", len(rules), manager.GetConfigPath())
	for _, rule := range rules {
		fmt.Printf("ID: %s\n", rule.ID)
		fmt.Printf("Kind: %s\n", rule.Kind)
		if rule.Value != "" {
			fmt.Printf("Value: %s\n", rule.Value)
		} else {
			fmt.Printf("Hash: %s\n", rule.Hash)
		}
		fmt.Printf("Reason: %s\n", rule.Reason)
		fmt.Printf("Enabled: %t\n", rule.Enabled)
		if rule.CreatedBy != "" {
			fmt.Printf("Created By: %s\n", rule.CreatedBy)
		}
		fmt.Printf("Created At: %s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
		if rule.ExpiresAt != nil {
			fmt.Printf("Expires At: %s\n", rule.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println("---")
	}
}

func addSuppression(manager *suppressions.SuppressionManager, kindName, value, reason string, expiresDays int) {
	if kindName == "" || value == "" {
		fmt.Println("Error: --kind and --value are required for add action")
		os.Exit(1)
	}

	var expiresAt *time.Time
	if expiresDays > 0 {
		t := time.Now().AddDate(0, 0, expiresDays).UTC()
		expiresAt = &t
	}
	createdBy := ""
	if u, err := user.Current(); err == nil {
		createdBy = u.Username
	}

	rule, err := manager.AddSuppression(parseKind(kindName), value, reason, createdBy, expiresAt)
	if err != nil {
		fmt.Printf("Error adding suppression: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully added suppression rule: %s\n", rule.ID)
}

func removeSuppression(manager *suppressions.SuppressionManager, id string) {
	err := manager.RemoveSuppression(id)
	if err != nil {
		fmt.Printf("Error removing suppression: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully removed suppression rule: %s\n", id)
}

func setEnabled(manager *suppressions.SuppressionManager, id string, enabled bool) {
	if err := manager.SetRuleEnabled(id, enabled); err != nil {
		fmt.Printf("Error updating suppression: %v\n", err)
		os.Exit(1)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Successfully %s suppression rule: %s\n", state, id)
}

func cleanupExpired(manager *suppressions.SuppressionManager) {
	removed, err := manager.CleanupExpired()
	if err != nil {
		fmt.Printf("Error cleaning up suppressions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cleaned up %d expired suppression rules\n", removed)
}

// printHash prints the rule hash, for files that must not hold the value
func printHash(kindName, value string) {
	if kindName == "" || value == "" {
		fmt.Println("Error: --kind and --value are required for hash action")
		os.Exit(1)
	}
	fmt.Println(suppressions.ValueHash(parseKind(kindName), value))
}
