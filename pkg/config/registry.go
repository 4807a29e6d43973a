package config

// Persistent state keys (Registry)
const (
	KeyPlayerVolume = "player_volume"
	KeyPlayerMuted  = "player_muted"
	KeyPlayerRate   = "player_rate"
	KeyBGMEnabled   = "bgm_enabled"
	KeySearchRadius = "search_radius"
	KeyNearbyType   = "nearby_type"
	KeyCacheTTL     = "cache_ttl"
)
