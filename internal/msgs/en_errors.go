// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msgs

import (
	"fmt"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const sdkPrefix = "PM01"

var registered = false
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	if !registered {
		i18n.RegisterPrefix(sdkPrefix, "Polymesh SDK")
		registered = true
	}
	if !strings.HasPrefix(key, sdkPrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", sdkPrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (

	// Config / types PM0100XX
	MsgConfigFileMissing     = ffe("PM010000", "Config file not found at path: %s")
	MsgConfigFileReadError   = ffe("PM010001", "Failed to read config file %s with error: %s")
	MsgConfigFileParseError  = ffe("PM010002", "Failed to parse config file: %s")
	MsgTypesInvalidHex       = ffe("PM010003", "Invalid hex: %s")
	MsgTypesInvalidBalance   = ffe("PM010004", "Invalid balance '%s'")
	MsgTypesBalanceTooPrecise = ffe("PM010005", "Balance '%s' has more than %d decimal places")
	MsgTypesNegativeBalance  = ffe("PM010006", "Balance '%s' must not be negative")
	MsgTypesInvalidEnum      = ffe("PM010007", "Value '%s' is not one of the allowed values: %v")
	MsgTypesInvalidPermill   = ffe("PM010008", "Percentage '%s' must be between 0 and 100")
	MsgContextCanceled       = ffe("PM010009", "Context canceled")
	MsgTLSInvalidCAFile      = ffe("PM010010", "Invalid CA certificates file")
	MsgTLSInvalidKeyPairFiles = ffe("PM010011", "Invalid certificate and key pair files")
	MsgTLSConfigFailed       = ffe("PM010012", "Failed to initialize TLS configuration")
	MsgTypesInvalidSS58      = ffe("PM010013", "Invalid SS58 address '%s': %s")
	MsgTypesSS58Checksum     = ffe("PM010014", "Invalid SS58 address '%s': checksum mismatch")
	MsgInflightRequestCancelled = ffe("PM010015", "Request cancelled after %s")
	MsgInflightManagerClosed    = ffe("PM010016", "Request abandoned after %s as the client is closing")
	MsgTLSInvalidDNMatcherAttr   = ffe("PM010017", "Unknown DN attribute '%s'")
	MsgTLSInvalidDNMatcherRegexp = ffe("PM010018", "Invalid regexp '%s' for requiredDNAttributes[%s]: %s")
	MsgTLSInvalidDNChain         = ffe("PM010019", "Cannot match subject distinguished name of the node certificate")
	MsgTLSDNMismatch             = ffe("PM010020", "Node certificate subject does not meet requirements")
	MsgTypesInvalidSS58Prefix    = ffe("PM010021", "Invalid SS58 prefix %d")
	MsgTypesInvalidAccountID     = ffe("PM010022", "Account ID must be 32 bytes (length=%d)")
	MsgSigningInvalidKey         = ffe("PM010023", "Invalid signing key: %s")
	MsgSigningInvalidMnemonic    = ffe("PM010024", "Seed must be a valid BIP-39 mnemonic")
	MsgSigningInvalidPath        = ffe("PM010025", "Invalid BIP-32 derivation path segment '%s'")

	// Transport PM0101XX
	MsgWSClientInvalidURL         = ffe("PM010100", "Invalid WebSocket URL: %s")
	MsgWSClientConnectFailed      = ffe("PM010101", "Failed to connect to WebSocket: %s")
	MsgWSClientSendAfterClose     = ffe("PM010102", "WebSocket closed")
	MsgRPCClientInvalidResponse   = ffe("PM010103", "Invalid response from JSON/RPC server")
	MsgRPCClientRequestFailed     = ffe("PM010104", "JSON/RPC request failed: %s")
	MsgRPCClientResultParseFailed = ffe("PM010105", "Failed to parse result (expected=%T): %s")
	MsgRPCClientWebSocketReconnected = ffe("PM010106", "WebSocket reconnected during JSON/RPC call")
	MsgRPCClientSubscriptionFailed   = ffe("PM010107", "Subscription failed: %s")
	MsgRPCClientInvalidNotification  = ffe("PM010108", "Invalid notification for subscription %s")
	MsgRPCClientClosed               = ffe("PM010109", "JSON/RPC client closed")
	MsgRPCClientNotWebSocket         = ffe("PM010110", "Subscriptions require a WebSocket JSON/RPC connection")
	MsgHTTPRequestFailed             = ffe("PM010111", "HTTP request failed with status %d: %s")
	MsgHTTPNoResponse                = ffe("PM010112", "HTTP request to %s failed: %s")
	MsgHTTPInvalidURL                = ffe("PM010113", "Invalid HTTP URL: %s")
	MsgWSClientSendTimedOut          = ffe("PM010114", "WebSocket send timed out")
	MsgWSClientHeartbeatTimeout      = ffe("PM010115", "WebSocket heartbeat timed out after %.2fms")
	MsgRPCClientInvalidParam         = ffe("PM010116", "Invalid parameter %d for method %s: %s")
	MsgRPCClientError                = ffe("PM010117", "JSON/RPC error from node [%d]: %s")

	// Chain PM0102XX
	MsgChainStorageKeyFailed     = ffe("PM010200", "Failed to build storage key for %s: %s")
	MsgChainStorageDecodeFailed  = ffe("PM010201", "Failed to decode storage value for %s: %s")
	MsgChainExtrinsicEncodeFailed = ffe("PM010202", "Failed to encode extrinsic for %s: %s")
	MsgChainExtrinsicNotInBlock  = ffe("PM010203", "Extrinsic %s not found in block %s")
	MsgChainOutcomeDecodeFailed  = ffe("PM010204", "Failed to decode outcome of extrinsic %s: %s")
	MsgChainConnectionLost       = ffe("PM010205", "Connection to the chain node was lost: %s")
	MsgChainNotConnected         = ffe("PM010206", "Not connected to a chain node")
	MsgChainInvalidStorageChange = ffe("PM010207", "Invalid storage change set from node")
	MsgChainPoolRejected         = ffe("PM010208", "Extrinsic rejected by the transaction pool: %s")
	MsgChainInvalidStatus        = ffe("PM010209", "Invalid extrinsic status from node: %s")
	MsgChainInvalidInteger       = ffe("PM010210", "Invalid integer from node: %s")
	MsgChainReadOnly             = ffe("PM010211", "Node %s is reached over HTTP, which does not support %s")

	// Context PM0103XX
	MsgContextNoSigningAccount     = ffe("PM010300", "No signing account is available")
	MsgContextUnknownAccount       = ffe("PM010301", "Account '%s' is not managed by the signing manager")
	MsgContextNoIdentity           = ffe("PM010302", "The signing account %s is not associated with an Identity")
	MsgContextInsufficientBalance  = ffe("PM010303", "Not enough POLYX balance to pay for this transaction (account=%s required=%s free=%s)")
	MsgContextMiddlewareDisabled   = ffe("PM010304", "Cannot perform this action without an active middleware connection")
	MsgContextSigningFailed        = ffe("PM010305", "Failed to sign payload for account %s: %s")
	MsgContextAlreadyConnected     = ffe("PM010306", "Context already connected")
	MsgContextDisconnected         = ffe("PM010307", "Context has been disconnected")
	MsgContextSubsidyExhausted     = ffe("PM010308", "Not enough POLYX allowance on subsidy from %s (required=%s remaining=%s)")
	MsgContextNoCalls              = ffe("PM010309", "At least one call is required to estimate fees")

	// Procedure PM0104XX
	MsgProcedureUnauthorized   = ffe("PM010400", "The signing Identity cannot perform %s: %s")
	MsgProcedureNoChanges      = ffe("PM010401", "%s would not change anything")
	MsgProcedureMissingPrepare = ffe("PM010402", "Procedure %s has no prepare function")
	MsgProcedureMissingRoles   = ffe("PM010403", "missing roles %s")
	MsgProcedureMissingSignerPermissions = ffe("PM010404", "the signing account lacks permissions %s")
	MsgProcedureMissingAgentPermissions  = ffe("PM010405", "the signing Identity lacks agent permissions over %s for %s")
	MsgProcedureNoIdentityAuth = ffe("PM010406", "the signing account has no Identity")
	MsgProcedureAccountFrozen  = ffe("PM010407", "the signing account is frozen")
	MsgProcedureTransformFailed = ffe("PM010408", "Failed to transform result of %s: %s")

	// Transaction PM0105XX
	MsgTransactionNotIdle        = ffe("PM010500", "Transaction %s cannot run in status %s")
	MsgTransactionCannotAbort    = ffe("PM010501", "Transaction %s cannot be aborted in status %s")
	MsgTransactionAborted        = ffe("PM010502", "Transaction %s was aborted")
	MsgTransactionPoolRejected   = ffe("PM010503", "Transaction %s was rejected by the node (status=%s)")
	MsgTransactionDispatchFailed = ffe("PM010504", "Transaction %s failed on chain: %s")
	MsgTransactionFinalityTimeout = ffe("PM010505", "Transaction %s was not finalized before the node timed out; its outcome is unknown")
	MsgTransactionSubmitFailed   = ffe("PM010506", "Failed to submit transaction %s: %s")
	MsgTransactionNotComplete    = ffe("PM010507", "Transaction %s has not completed (status=%s)")
	MsgTransactionDispatchIndices = ffe("PM010508", "module %d error %d")

	// Query PM0106XX
	MsgQueryInvalidPageSize = ffe("PM010600", "Page size must be greater than zero (size=%d)")
	MsgQueryNoQueries       = ffe("PM010601", "At least one storage query is required")
	MsgMiddlewareQueryFailed = ffe("PM010602", "Middleware query failed: %s")
	MsgMiddlewareNoData      = ffe("PM010603", "Middleware returned no data")
	MsgQuerySubscriptionEnded = ffe("PM010604", "Storage subscription to %d items ended: %s")

	// Entities PM0107XX
	MsgAssetNotFound                = ffe("PM010700", "The Asset %s does not exist")
	MsgRequirementNotFound          = ffe("PM010701", "The Requirement %d does not exist for Asset %s")
	MsgRequirementAlreadyExists     = ffe("PM010702", "There already exists a Requirement with the same conditions for Asset %s")
	MsgRequirementsAlreadyPaused    = ffe("PM010703", "Requirements are already paused for Asset %s")
	MsgRequirementsNotPaused        = ffe("PM010704", "Requirements are not paused for Asset %s")
	MsgCorporateActionsEmptyConfig  = ffe("PM010705", "Nothing to modify: provide targets, defaultTaxWithholding or taxWithholdings")
	MsgTransferRestrictionStatNotEnabled = ffe("PM010706", "The appropriate %s statistic is not enabled for Asset %s")
	MsgTransferRestrictionTooMany   = ffe("PM010707", "Cannot set more than %d transfer restrictions (requested=%d)")
	MsgIssuanceExceedsMaxSupply     = ffe("PM010708", "Issuing %s would exceed the maximum total supply of %s (current=%s)")
	MsgIssuanceIndivisible          = ffe("PM010709", "Asset %s is indivisible and cannot issue fractional amount %s")
	MsgIssuanceNonPositive          = ffe("PM010710", "Amount to issue must be greater than zero")
	MsgClaimsTargetsMissing         = ffe("PM010711", "Some of the supplied Identity IDs do not exist: %v")
	MsgClaimsEmpty                  = ffe("PM010712", "At least one claim must be supplied")
	MsgClaimsCDDRequiresID          = ffe("PM010713", "CDD claims must carry a CDD ID")
	MsgClaimsNotFound               = ffe("PM010714", "Claims to revoke or edit were not issued by the signing Identity: %v")
	MsgClaimsExpiryInPast           = ffe("PM010715", "Claim expiry %s for %s is not in the future")
)
