// File: utils/constants.go
package utils

import "time"

// AccessCachePrefix is the prefix used for Redis course-access cache keys.
const AccessCachePrefix = "access:"

// AccessCacheTTL is the time-to-live for course-access cache entries.
const AccessCacheTTL = 2 * time.Minute

// CredentialCachePrefix is the prefix used for Redis processor-credential cache keys.
const CredentialCachePrefix = "pscred:"

// CredentialCacheTTL is the time-to-live for processor-credential cache entries.
const CredentialCacheTTL = 10 * time.Minute
