package redis

// Key prefixes for primary entity storage. Event types and source modules
// are keyed by name, the rest by TypeID.
const (
	prefixEventType    = "hookline:evtype:"
	prefixSourceModule = "hookline:srcmod:"
	prefixEvent        = "hookline:evt:"
	prefixSubscription = "hookline:sub:"
	prefixDeliveryLog  = "hookline:dlog:"
)

// Key prefixes for unique indexes.
const (
	uniqueEventIdem = "hookline:u:evt:idem:"
)

// Key prefixes for sorted set indexes.
const (
	zEventTypeAll      = "hookline:z:evtype:all"
	zSourceModuleAll   = "hookline:z:srcmod:all"
	zEventAll          = "hookline:z:evt:all"
	zSubscriptionAll   = "hookline:z:sub:all"
	zDeliveryLogEvent  = "hookline:z:dlog:evt:"  // + event ID
	zDeliveryLogSub    = "hookline:z:dlog:sub:"  // + subscription ID
	zDeliveryLogPair   = "hookline:z:dlog:pair:" // + event ID + ":" + subscription ID
	sDeliveryLogStatus = "hookline:s:dlog:status:"
)

// Set of active subscription IDs, maintained alongside is_active.
const sSubscriptionActive = "hookline:s:sub:active"

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

// pairKey returns the sorted set key for one (event, subscription) pair's
// attempt history, scored by attempt number.
func pairKey(evtID, subID string) string {
	return zDeliveryLogPair + evtID + ":" + subID
}

// statusSetKey returns the set key holding log IDs in a given status.
func statusSetKey(status string) string {
	return sDeliveryLogStatus + status
}
