package tokenloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

const defaultTokenDirectoryPath = "data/tokens"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TokenFileLoader implements port.TokenProvider over JSON token lists, one file per
// network named after the network identifier.
type TokenFileLoader struct {
	tokenDirPath string
	loggerInfo   func(msg string, args ...any)
	loggerWarn   func(msg string, args ...any)

	mu     sync.Mutex
	loaded map[string][]entity.TokenInfo
}

// NewTokenLoader creates a new TokenFileLoader reading from dir.
func NewTokenLoader(dir string, loggerInfo func(msg string, args ...any), loggerWarn func(msg string, args ...any)) port.TokenProvider {
	if dir == "" {
		dir = defaultTokenDirectoryPath
	}
	return &TokenFileLoader{
		tokenDirPath: dir,
		loggerInfo:   loggerInfo,
		loggerWarn:   loggerWarn,
		loaded:       make(map[string][]entity.TokenInfo),
	}
}

// GetTokens returns the tracked tokens of a network. A missing file means no tokens.
// Tokens whose chain id does not match the network are skipped.
func (l *TokenFileLoader) GetTokens(network entity.NetworkDefinition) ([]entity.TokenInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tokens, ok := l.loaded[network.Identifier]; ok {
		return tokens, nil
	}

	filePath := filepath.Join(l.tokenDirPath, strings.ToLower(network.Identifier)+".json")
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			l.warn("No token file for network, only the native balance is tracked", "path", filePath)
			l.loaded[network.Identifier] = []entity.TokenInfo{}
			return []entity.TokenInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", filePath, err)
	}

	var tokensInFile []entity.TokenInfo
	if err := json.Unmarshal(data, &tokensInFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens from %s: %w", filePath, err)
	}

	valid := make([]entity.TokenInfo, 0, len(tokensInFile))
	seen := make(map[string]struct{}, len(tokensInFile))
	for _, token := range tokensInFile {
		if token.ChainID != network.ChainID {
			l.warn("Token has mismatched ChainID in file, skipping token.",
				"file", filePath,
				"token_symbol", token.Symbol,
				"token_address", token.Address,
				"token_chain_id", token.ChainID,
				"expected_chain_id", network.ChainID)
			continue
		}
		key := strings.ToLower(token.Address)
		if _, dup := seen[key]; dup || token.Address == "" {
			continue
		}
		seen[key] = struct{}{}
		token.Chain = network.Chain
		valid = append(valid, token)
	}

	l.loaded[network.Identifier] = valid
	if l.loggerInfo != nil {
		l.loggerInfo("Loaded tokens for network", "network_identifier", network.Identifier, "file", filePath, "count", len(valid))
	}
	return valid, nil
}

func (l *TokenFileLoader) warn(msg string, args ...any) {
	if l.loggerWarn != nil {
		l.loggerWarn(msg, args...)
	}
}
