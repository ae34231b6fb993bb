package domain

type VehicleType string

const (
	VehicleTypeVehicle    VehicleType = "VEHICLE"
	VehicleTypeWatercraft VehicleType = "WATERCRAFT"
	VehicleTypeTrailer    VehicleType = "TRAILER"
)

type VehicleStatus string

const (
	VehicleStatusOperational    VehicleStatus = "OPERATIONAL"
	VehicleStatusInMaintenance  VehicleStatus = "IN_MAINTENANCE"
	VehicleStatusOutOfService   VehicleStatus = "OUT_OF_SERVICE"
	VehicleStatusDecommissioned VehicleStatus = "DECOMMISSIONED"
)

// Vehicle is the registry read model. Status changes are an administrative
// operation outside the mission core; here the record is read-only.
type Vehicle struct {
	ID VehicleID

	// PlateOrSerial is the plate number for road vehicles and the hull/serial
	// number for watercraft and unregistered trailers.
	PlateOrSerial string
	Name          string
	Type          VehicleType
	Status        VehicleStatus

	// RequiredLicenseClass is the license class a driver must hold to operate
	// this vehicle (or tow this trailer). Nil means any active member may.
	RequiredLicenseClass *LicenseClass
}

// IsDepartable reports whether the vehicle may start a new mission.
// Vehicles under maintenance can still be dispatched (e.g. a workshop run);
// out-of-service and decommissioned vehicles cannot.
func (v Vehicle) IsDepartable() bool {
	return v.Status != VehicleStatusOutOfService && v.Status != VehicleStatusDecommissioned
}

// IsTrailer reports whether the record is a trailer.
func (v Vehicle) IsTrailer() bool { return v.Type == VehicleTypeTrailer }
