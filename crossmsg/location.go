// Copyright 2026 Blink Labs Software
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

package crossmsg

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

type JunctionKind uint8

const (
	JunctionParachain JunctionKind = iota
	JunctionAccountID32
	JunctionAccountKey20
	JunctionPalletInstance
	JunctionGeneralIndex
	JunctionGeneralKey
)

const (
	accountID32Size  = 32
	accountKey20Size = 20
	maxGeneralKeyLen = 32
	maxInteriorLen   = 8
)

func (k JunctionKind) String() string {
	switch k {
	case JunctionParachain:
		return "Parachain"
	case JunctionAccountID32:
		return "AccountId32"
	case JunctionAccountKey20:
		return "AccountKey20"
	case JunctionPalletInstance:
		return "PalletInstance"
	case JunctionGeneralIndex:
		return "GeneralIndex"
	case JunctionGeneralKey:
		return "GeneralKey"
	default:
		return fmt.Sprintf("JunctionKind(%d)", uint8(k))
	}
}

// Junction is one step of a location's interior path. ID is used by the
// numeric kinds and Key by the byte-keyed kinds.
type Junction struct {
	cbor.StructAsArray
	Kind JunctionKind
	ID   uint64
	Key  []byte
}

func Parachain(id uint32) Junction {
	return Junction{Kind: JunctionParachain, ID: uint64(id)}
}

func AccountID32(id [32]byte) Junction {
	return Junction{Kind: JunctionAccountID32, Key: id[:]}
}

func AccountKey20(key [20]byte) Junction {
	return Junction{Kind: JunctionAccountKey20, Key: key[:]}
}

func PalletInstance(idx uint8) Junction {
	return Junction{Kind: JunctionPalletInstance, ID: uint64(idx)}
}

func GeneralIndex(idx uint64) Junction {
	return Junction{Kind: JunctionGeneralIndex, ID: idx}
}

func GeneralKey(key []byte) Junction {
	return Junction{Kind: JunctionGeneralKey, Key: key}
}

func (j Junction) Validate() error {
	switch j.Kind {
	case JunctionParachain:
		if j.ID > uint64(^uint32(0)) {
			return fmt.Errorf("parachain ID out of range: %d", j.ID)
		}
		if len(j.Key) != 0 {
			return errors.New("parachain junction carries a key")
		}
	case JunctionPalletInstance:
		if j.ID > uint64(^uint8(0)) {
			return fmt.Errorf("pallet instance out of range: %d", j.ID)
		}
		if len(j.Key) != 0 {
			return errors.New("pallet instance junction carries a key")
		}
	case JunctionGeneralIndex:
		if len(j.Key) != 0 {
			return errors.New("general index junction carries a key")
		}
	case JunctionAccountID32:
		if len(j.Key) != accountID32Size || j.ID != 0 {
			return fmt.Errorf("invalid AccountId32 junction: key length %d", len(j.Key))
		}
	case JunctionAccountKey20:
		if len(j.Key) != accountKey20Size || j.ID != 0 {
			return fmt.Errorf("invalid AccountKey20 junction: key length %d", len(j.Key))
		}
	case JunctionGeneralKey:
		if len(j.Key) > maxGeneralKeyLen || j.ID != 0 {
			return fmt.Errorf("invalid GeneralKey junction: key length %d", len(j.Key))
		}
	default:
		return fmt.Errorf("unknown junction kind: %d", j.Kind)
	}
	return nil
}

// Location addresses a consensus system relative to the current one
type Location struct {
	cbor.StructAsArray
	Parents  uint8
	Interior []Junction
}

// Here is the location of the local system
func Here() Location {
	return Location{}
}

// Parent is the location of the enclosing system (e.g. the relay chain)
func Parent() Location {
	return Location{Parents: 1}
}

// NewLocation builds a location from its parent count and interior path
func NewLocation(parents uint8, interior ...Junction) Location {
	return Location{Parents: parents, Interior: interior}
}

// IsHere reports whether the location resolves to the local system
func (l Location) IsHere() bool {
	return l.Parents == 0 && len(l.Interior) == 0
}

func (l Location) Validate() error {
	if len(l.Interior) > maxInteriorLen {
		return fmt.Errorf(
			"location interior too long: %d junctions (max %d)",
			len(l.Interior),
			maxInteriorLen,
		)
	}
	for i, j := range l.Interior {
		if err := j.Validate(); err != nil {
			return fmt.Errorf("junction %d: %w", i, err)
		}
	}
	return nil
}

func (l Location) String() string {
	ret := fmt.Sprintf("{parents: %d", l.Parents)
	for _, j := range l.Interior {
		if j.Key != nil {
			ret += fmt.Sprintf(", %s(%x)", j.Kind, j.Key)
		} else {
			ret += fmt.Sprintf(", %s(%d)", j.Kind, j.ID)
		}
	}
	return ret + "}"
}
