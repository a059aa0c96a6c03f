package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleShop     Role = "shop"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleShop
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func Customer(id int64) Actor { return Actor{ID: id, Role: RoleCustomer} }

func Shop(id int64) Actor { return Actor{ID: id, Role: RoleShop} }

// CanSee reports whether the actor is a party to the rental.
func (a Actor) CanSee(r *Rental) bool {
	switch a.Role {
	case RoleCustomer:
		return r.CustomerID == a.ID
	case RoleShop:
		return r.ShopID == a.ID
	}
	return false
}

// Owns reports whether the actor is the shop that lists the vehicle.
func (a Actor) Owns(v *Vehicle) bool {
	return a.Role == RoleShop && v.ShopID == a.ID
}
