// Copyright (c) 2024 Neomantra Corp

package identity

import "fmt"

// AssetType discriminates the kind of tradable thing an InstrumentId names.
type AssetType uint8

const (
	AssetType_Unknown AssetType = 0
	AssetType_Spot    AssetType = 1
	AssetType_Future   AssetType = 2
	AssetType_Option  AssetType = 3
	AssetType_Token   AssetType = 4
	AssetType_Pool    AssetType = 5
	AssetType_LPShare AssetType = 6
)

var assetTypeNames = map[AssetType]string{
	AssetType_Unknown: "unknown",
	AssetType_Spot:    "spot",
	AssetType_Future:  "future",
	AssetType_Option:  "option",
	AssetType_Token:   "token",
	AssetType_Pool:    "pool",
	AssetType_LPShare: "lp_share",
}

func (a AssetType) String() string {
	if name, ok := assetTypeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("asset_type(%d)", uint8(a))
}
