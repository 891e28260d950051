package password

// commonPasswords is the default breached/common password blocklist applied
// when Rules.Blocklist is nil. Entries are lowercase; the check is
// case-insensitive exact match.
var commonPasswords = []string{
	"password",
	"password1",
	"password123",
	"123456",
	"1234567",
	"12345678",
	"123456789",
	"1234567890",
	"qwerty",
	"qwerty123",
	"abc123",
	"letmein",
	"welcome",
	"welcome1",
	"monkey",
	"dragon",
	"iloveyou",
	"sunshine",
	"princess",
	"admin",
	"admin123",
	"root",
	"passw0rd",
	"p@ssword",
	"p@ssw0rd",
	"football",
	"baseball",
	"master",
	"shadow",
	"superman",
	"trustno1",
	"000000",
	"111111",
	"654321",
	"qazwsx",
	"zaq12wsx",
	"1q2w3e4r",
	"changeme",
	"secret",
	"hello123",
}
