// Package env derives the identity of the running backpack.
package env

import (
	"crypto/sha256"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/backpack/pkg/config"
)

const appID = "robotalks-backpack"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		panic(err)
	}
	return id
}

// LocalAddress derives a stable, locally administered unicast address
// from the machine ID.
func LocalAddress() config.Address {
	return AddressFromID(MachineID())
}

// AddressFromID hashes id into a locally administered unicast address.
func AddressFromID(id string) (addr config.Address) {
	sum := sha256.Sum256([]byte(id))
	copy(addr[:], sum[:])
	addr[0] = addr[0]&^0x01 | 0x02
	return
}
