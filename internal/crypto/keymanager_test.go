package crypto

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (hardhat account #0).
const (
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestLoadKey_Raw(t *testing.T) {
	for _, raw := range []string{devKey, "0x" + devKey, " 0x" + devKey + "\n"} {
		key, err := LoadKey(KeySource{RawPrivateKey: raw})
		require.NoError(t, err)
		assert.Equal(t, devAddress, ethcrypto.PubkeyToAddress(key.PublicKey).Hex())
	}
}

func TestLoadKey_Invalid(t *testing.T) {
	_, err := LoadKey(KeySource{RawPrivateKey: "zz"})
	assert.Error(t, err)

	_, err = LoadKey(KeySource{RawPrivateKey: "abcd"})
	assert.Error(t, err)

	_, err = LoadKey(KeySource{})
	assert.Error(t, err)
	assert.False(t, KeySource{}.Configured())
}

func TestEncryptedKeyFile(t *testing.T) {
	blob, err := EncryptKey("0x"+devKey, "hunter2")
	require.NoError(t, err)
	assert.Contains(t, string(blob), devAddress)
	assert.NotContains(t, string(blob), devKey)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	src := KeySource{EncryptedKeyPath: path, KeyPassword: "hunter2"}
	require.True(t, src.Configured())
	key, err := LoadKey(src)
	require.NoError(t, err)
	assert.Equal(t, devAddress, ethcrypto.PubkeyToAddress(key.PublicKey).Hex())

	_, err = LoadKey(KeySource{EncryptedKeyPath: path, KeyPassword: "wrong"})
	assert.Error(t, err)

	_, err = DecryptKey(blob, "")
	assert.Error(t, err)
}

func TestEncryptKey_Rejects(t *testing.T) {
	_, err := EncryptKey(devKey, "")
	assert.Error(t, err)

	_, err = EncryptKey("not-hex", "pw")
	assert.Error(t, err)
}

func TestDecryptKey_BadFile(t *testing.T) {
	_, err := DecryptKey([]byte("{"), "pw")
	assert.Error(t, err)

	_, err = DecryptKey([]byte(`{"version":9}`), "pw")
	assert.Error(t, err)
}

func TestSigner_SignTx(t *testing.T) {
	key, err := LoadKey(KeySource{RawPrivateKey: devKey})
	require.NoError(t, err)
	s := NewSigner(key)
	assert.Equal(t, devAddress, s.Address().Hex())

	chainID := big.NewInt(11155111)
	to := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1000),
	})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)
	assert.Equal(t, uint64(7), signed.Nonce())
}
