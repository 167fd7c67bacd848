// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import "net/http"

const (
	DomainConfig      Domain = "CONFIG"
	DomainIdentifier  Domain = "IDENTIFIER"
	DomainCowFS       Domain = "COWFS"
	DomainJail        Domain = "JAIL"
	DomainMount       Domain = "MOUNT"
	DomainHandler     Domain = "HANDLER"
	DomainPipeline    Domain = "PIPELINE"
	DomainTransaction Domain = "TRANSACTION"
	DomainZone        Domain = "ZONE"
	DomainNamespace   Domain = "NAMESPACE"
	DomainCommand     Domain = "CMD"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

type ZonysError struct {
	Code       ErrorCode `json:"code"`
	Domain     Domain    `json:"domain"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`

	// Metadata carries structured context (argv, stderr, identifiers) useful
	// for logging and debugging without cluttering Error()'s message.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Error code ranges:
// 1000-1099: Configuration errors (app-level config, not zone spec)
// 1100-1199: Identifier parsing
// 1200-1299: CoW-FS adapter
// 1300-1399: Jail adapter
// 1400-1499: Mount adapter
// 1500-1599: Handler registry / schema validation
// 1600-1699: Configuration pipeline
// 1700-1799: Lifecycle transaction manager
// 1800-1899: Zone store / zone operations
// 1900-1999: Namespace
// 2000-2099: Command execution
const (
	ConfigNotFound = 1000 + iota
	ConfigInvalid
	ConfigLoadFailed
	ConfigWriteFailed
	ConfigParseError
)

const (
	// Identifier parsing (1100-1199)
	IdentifierEmpty = 1100 + iota
	IdentifierInvalidSegment
	IdentifierInvalidSnapshot
)

const (
	// CoW-FS adapter (1200-1299)
	CowFSDatasetCreate = 1200 + iota
	CowFSDatasetDestroy
	CowFSDatasetOpen
	CowFSDatasetNotFound
	CowFSDatasetAlreadyExists
	CowFSDatasetRename
	CowFSDatasetList
	CowFSDatasetMount
	CowFSDatasetUnmount
	CowFSSnapshotCreate
	CowFSSnapshotDestroy
	CowFSSnapshotNotFound
	CowFSSnapshotClone
	CowFSSend
	CowFSReceive
	CowFSIllegalIdentifier
)

const (
	// Jail adapter (1300-1399)
	JailCreate = 1300 + iota
	JailDestroy
	JailOpen
	JailNotFound
	JailAlreadyExists
	JailExecute
	JailAlreadyRunning
	JailNotRunning
)

const (
	// Mount adapter (1400-1499)
	MountCreate = 1400 + iota
	MountDestroy
	MountParse
	MountNotFound
	MountAlreadyMounted
)

const (
	// Handler registry (1500-1599)
	HandlerInvalidConfiguration = 1500 + iota
	HandlerSchemaValidation
	HandlerUnknownField
	HandlerMissingField
)

const (
	// Configuration pipeline (1600-1699)
	PipelineInvalidConfiguration = 1600 + iota
	PipelineIncludeFailed
	PipelineBasePathResolution
)

const (
	// Lifecycle transaction manager (1700-1799)
	TransactionCommitFailed = 1700 + iota
	TransactionRollbackFailed
	TransactionInterpolationFailed
)

const (
	// Zone store / operations (1800-1899)
	ZoneNotFound = 1800 + iota
	ZoneAlreadyExists
	ZoneNameAlreadyUsed
	ZoneAlreadyRunning
	ZoneNotRunning
	ZoneRunning
	ZoneAmbiguousMatch
	ZoneNoMatch
	ZoneInvalidSpec
)

const (
	// Namespace (1900-1999)
	NamespaceNotFound = 1900 + iota
	NamespaceNameAlreadyUsed
	NamespaceServiceError
)

const (
	// Command execution (2000-2099)
	CommandNotFound = 2000 + iota
	CommandExecution
	CommandTimeout
	CommandInvalidInput
	CommandOutputParse
	CommandPipe
)

var errorDefinitions = map[ErrorCode]struct {
	domain     Domain
	message    string
	httpStatus int
}{
	ConfigNotFound:    {DomainConfig, "configuration file not found", http.StatusNotFound},
	ConfigInvalid:     {DomainConfig, "invalid configuration", http.StatusBadRequest},
	ConfigLoadFailed:  {DomainConfig, "failed to load configuration", http.StatusInternalServerError},
	ConfigWriteFailed: {DomainConfig, "failed to write configuration", http.StatusInternalServerError},
	ConfigParseError:  {DomainConfig, "failed to parse configuration", http.StatusBadRequest},

	IdentifierEmpty:           {DomainIdentifier, "identifier must have at least one segment", http.StatusBadRequest},
	IdentifierInvalidSegment:  {DomainIdentifier, "identifier segment is invalid", http.StatusBadRequest},
	IdentifierInvalidSnapshot: {DomainIdentifier, "snapshot identifier is invalid", http.StatusBadRequest},

	CowFSDatasetCreate:        {DomainCowFS, "failed to create dataset", http.StatusInternalServerError},
	CowFSDatasetDestroy:       {DomainCowFS, "failed to destroy dataset", http.StatusInternalServerError},
	CowFSDatasetOpen:          {DomainCowFS, "failed to open dataset", http.StatusInternalServerError},
	CowFSDatasetNotFound:      {DomainCowFS, "dataset not found", http.StatusNotFound},
	CowFSDatasetAlreadyExists: {DomainCowFS, "dataset already exists", http.StatusConflict},
	CowFSDatasetRename:        {DomainCowFS, "failed to rename dataset", http.StatusInternalServerError},
	CowFSDatasetList:          {DomainCowFS, "failed to list datasets", http.StatusInternalServerError},
	CowFSDatasetMount:         {DomainCowFS, "failed to mount dataset", http.StatusInternalServerError},
	CowFSDatasetUnmount:       {DomainCowFS, "failed to unmount dataset", http.StatusInternalServerError},
	CowFSSnapshotCreate:       {DomainCowFS, "failed to create snapshot", http.StatusInternalServerError},
	CowFSSnapshotDestroy:      {DomainCowFS, "failed to destroy snapshot", http.StatusInternalServerError},
	CowFSSnapshotNotFound:     {DomainCowFS, "snapshot not found", http.StatusNotFound},
	CowFSSnapshotClone:        {DomainCowFS, "failed to clone snapshot", http.StatusInternalServerError},
	CowFSSend:                 {DomainCowFS, "failed to send snapshot stream", http.StatusInternalServerError},
	CowFSReceive:              {DomainCowFS, "failed to receive snapshot stream", http.StatusInternalServerError},
	CowFSIllegalIdentifier:    {DomainCowFS, "received dataset identifier does not match target", http.StatusConflict},

	JailCreate:         {DomainJail, "failed to create jail", http.StatusInternalServerError},
	JailDestroy:        {DomainJail, "failed to destroy jail", http.StatusInternalServerError},
	JailOpen:           {DomainJail, "failed to open jail", http.StatusInternalServerError},
	JailNotFound:       {DomainJail, "jail not found", http.StatusNotFound},
	JailAlreadyExists:  {DomainJail, "jail already exists", http.StatusConflict},
	JailExecute:        {DomainJail, "failed to execute command in jail", http.StatusInternalServerError},
	JailAlreadyRunning: {DomainJail, "jail is already running", http.StatusConflict},
	JailNotRunning:     {DomainJail, "jail is not running", http.StatusConflict},

	MountCreate:         {DomainMount, "failed to mount", http.StatusInternalServerError},
	MountDestroy:        {DomainMount, "failed to unmount", http.StatusInternalServerError},
	MountParse:          {DomainMount, "failed to parse mount output", http.StatusInternalServerError},
	MountNotFound:       {DomainMount, "mount not found", http.StatusNotFound},
	MountAlreadyMounted: {DomainMount, "already mounted", http.StatusConflict},

	HandlerInvalidConfiguration: {DomainHandler, "invalid configuration", http.StatusBadRequest},
	HandlerSchemaValidation:     {DomainHandler, "schema validation failed", http.StatusBadRequest},
	HandlerUnknownField:         {DomainHandler, "unknown field", http.StatusBadRequest},
	HandlerMissingField:         {DomainHandler, "missing required field", http.StatusBadRequest},

	PipelineInvalidConfiguration: {DomainPipeline, "invalid configuration", http.StatusBadRequest},
	PipelineIncludeFailed:        {DomainPipeline, "failed to expand include", http.StatusInternalServerError},
	PipelineBasePathResolution:   {DomainPipeline, "failed to resolve base path", http.StatusBadRequest},

	TransactionCommitFailed:        {DomainTransaction, "commit failed", http.StatusInternalServerError},
	TransactionRollbackFailed:      {DomainTransaction, "rollback failed", http.StatusInternalServerError},
	TransactionInterpolationFailed: {DomainTransaction, "variable interpolation failed", http.StatusInternalServerError},

	ZoneNotFound:        {DomainZone, "zone not found", http.StatusNotFound},
	ZoneAlreadyExists:   {DomainZone, "zone already exists", http.StatusConflict},
	ZoneNameAlreadyUsed: {DomainZone, "zone name already used", http.StatusConflict},
	ZoneAlreadyRunning:  {DomainZone, "zone is already running", http.StatusConflict},
	ZoneNotRunning:      {DomainZone, "zone is not running", http.StatusConflict},
	ZoneRunning:         {DomainZone, "zone is running", http.StatusConflict},
	ZoneAmbiguousMatch:  {DomainZone, "zone query matches more than one zone", http.StatusConflict},
	ZoneNoMatch:         {DomainZone, "zone query matched no zone", http.StatusNotFound},
	ZoneInvalidSpec:     {DomainZone, "invalid zone specification", http.StatusBadRequest},

	NamespaceNotFound:        {DomainNamespace, "namespace not found", http.StatusNotFound},
	NamespaceNameAlreadyUsed: {DomainNamespace, "namespace name already used", http.StatusConflict},
	NamespaceServiceError:    {DomainNamespace, "service registration error", http.StatusInternalServerError},

	CommandNotFound:     {DomainCommand, "command not found", http.StatusNotFound},
	CommandExecution:    {DomainCommand, "command execution failed", http.StatusInternalServerError},
	CommandTimeout:      {DomainCommand, "command execution timed out", http.StatusGatewayTimeout},
	CommandInvalidInput: {DomainCommand, "invalid command input", http.StatusBadRequest},
	CommandOutputParse:  {DomainCommand, "failed to parse command output", http.StatusInternalServerError},
	CommandPipe:         {DomainCommand, "command pipe error", http.StatusInternalServerError},
}
