package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Asset contract methods.
const (
	MethodCreateAsset    = "createAsset"
	MethodMakeInvestment = "makeInvestment"
	MethodGetAssetInfo   = "getAssetInfo"
)

const assetContractABI = `[
  {
    "type": "function",
    "name": "createAsset",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "_name", "type": "string", "internalType": "string"},
      {"name": "_location", "type": "string", "internalType": "string"},
      {"name": "_assetType", "type": "uint8", "internalType": "uint8"}
    ],
    "outputs": [{"name": "", "type": "uint256", "internalType": "uint256"}]
  },
  {
    "type": "function",
    "name": "makeInvestment",
    "stateMutability": "payable",
    "inputs": [{"name": "assetId", "type": "uint256", "internalType": "uint256"}],
    "outputs": [{"name": "", "type": "uint256", "internalType": "uint256"}]
  },
  {
    "type": "function",
    "name": "getAssetInfo",
    "stateMutability": "view",
    "inputs": [{"name": "assetId", "type": "uint256", "internalType": "uint256"}],
    "outputs": [
      {"name": "name", "type": "string", "internalType": "string"},
      {"name": "location", "type": "string", "internalType": "string"},
      {"name": "assetType", "type": "uint8", "internalType": "uint8"},
      {"name": "totalValue", "type": "uint8", "internalType": "uint8"},
      {"name": "availableTokens", "type": "uint8", "internalType": "uint8"},
      {"name": "minInvestment", "type": "uint8", "internalType": "uint8"},
      {"name": "yield", "type": "uint8", "internalType": "uint8"},
      {"name": "isEncrypted", "type": "bool", "internalType": "bool"},
      {"name": "owner", "type": "address", "internalType": "address"},
      {"name": "createdAt", "type": "uint256", "internalType": "uint256"},
      {"name": "updatedAt", "type": "uint256", "internalType": "uint256"}
    ]
  }
]`

// AssetContractABI returns the parsed ABI of the asset contract.
func AssetContractABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(assetContractABI))
}
