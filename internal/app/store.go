package app

// Store is everything the services need from a storage backend. The
// postgres, sqlite and memory adapters each implement all of it.
type Store interface {
	AvailabilityRepository
	HoldRepository
	ReservationRepository
	SiteRepository
	UserRepository
}
