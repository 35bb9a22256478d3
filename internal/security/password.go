package security

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost bcrypt 工作因子，12 在安全与耗时之间取平衡。
const DefaultBcryptCost = 12

// PasswordHasher bcrypt 密码哈希器。每次 Hash 自带随机盐，
// 相同明文产生不同哈希；Verify 为常数时间比较。
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash 生成单向哈希。
func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 校验明文与存储哈希是否匹配。
// 哈希格式损坏时返回 false，绝不 panic。
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
