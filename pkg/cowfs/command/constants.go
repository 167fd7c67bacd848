// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package command

import "time"

const (
	// BinZFS and BinZpool locate the CoW-FS command-line tools. On a
	// FreeBSD host these back the dataset/snapshot/send-receive facility
	// the CoW-FS adapter exposes.
	BinZFS   = "/sbin/zfs"
	BinZpool = "/sbin/zpool"

	maxCommandArgs = 64

	// DefaultTimeout bounds how long any single dataset/snapshot operation
	// may run before it is killed and surfaced as CommandTimeout.
	DefaultTimeout = 30 * time.Second
)

// dangerousChars mirrors the shell metacharacters the executor refuses to
// pass through, since every argument reaches exec.Command unshelled.
var dangerousChars = "&|><$`\\[];{}"

// jsonSupportedCommands lists subcommands that accept -j for JSON output.
var jsonSupportedCommands = map[string]bool{
	"zfs get":    true,
	"zfs list":   true,
	"zpool get":  true,
	"zpool list": true,
}
