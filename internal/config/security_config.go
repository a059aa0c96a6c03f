package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityAccess                        // Any access token
	SecurityCustomer                      // Access token with the customer role
	SecurityShop                          // Access token with the shop role
)

// EndpointSecurityConfig maps HTTP route names and gRPC full method names to
// their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Probes - Public
	"Health/Live": SecurityPublic,
	"Metrics":     SecurityPublic,

	// gRPC health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	// gRPC rental read service
	"/backcar.rental.v1.RentalEngine/GetRental":           SecurityAccess,
	"/backcar.rental.v1.RentalEngine/ListRentals":         SecurityAccess,
	"/backcar.rental.v1.RentalEngine/GetHistory":          SecurityAccess,
	"/backcar.rental.v1.RentalEngine/ListPendingPayments": SecurityShop,

	// RentalService - Customer
	"RentalService/CreateBooking": SecurityCustomer,
	"RentalService/CancelRental":  SecurityCustomer,
	"RentalService/RequestReturn": SecurityCustomer,

	// RentalService - Shop
	"RentalService/DecideRental":       SecurityShop,
	"RentalService/StartRental":        SecurityShop,
	"RentalService/DecideReturn":       SecurityShop,
	"RentalService/UpdateRentalStatus": SecurityShop,

	// RentalService - either party
	"RentalService/GetRental":   SecurityAccess,
	"RentalService/ListRentals": SecurityAccess,
	"RentalService/GetHistory":  SecurityAccess,

	// PaymentService
	"PaymentService/SubmitProof":         SecurityCustomer,
	"PaymentService/VerifyPayment":       SecurityShop,
	"PaymentService/ApproveBooking":      SecurityShop,
	"PaymentService/ListPendingPayments": SecurityShop,
	"PaymentService/ListPayments":        SecurityShop,
	"PaymentService/GetPayment":          SecurityAccess,

	// AvailabilityService - Shop
	"AvailabilityService/SetVehicleStatus": SecurityShop,
	"AvailabilityService/DeleteVehicle":    SecurityShop,

	// NotificationService - Access Protected
	"NotificationService/GetNotifications":     SecurityAccess,
	"NotificationService/MarkNotificationRead": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to requiring a token for unknown routes
	return SecurityAccess
}
