package sql

import "strings"

type Token struct {
	Type  TokenType
	Value string
	// Pos and End are byte offsets of the raw token in the input.
	Pos int
	End int
}

type TokenType int

const (
	Identifier TokenType = iota
	TableIdentifier
	TablesIdentifier
	ColumnIdentifier
	ColumnsIdentifier
	Show
	In
	Wildcard
	String
	Int
	Float
	Comma
	ParenOpen
	ParenClose
	Semicolon
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Plus
	Minus
	Slash
	Percent
	Concat
	And
	Or
	Not
	Is
	Null
	Like
	True
	False
	Select
	From
	Where
	Limit
	Offset
	Order
	By
	Asc
	Desc
	As
	Create
	Drop
	Alter
	Add
	Rename
	To
	Insert
	Update
	Delete
	Set
	Into
	Values
	If
	Exists
	Engine
	Primary
	Key
	Version
	EOF
	Unknown
)

var tokenNames = map[TokenType]string{
	Identifier:         "Identifier",
	TableIdentifier:    "TABLE",
	TablesIdentifier:   "TABLES",
	ColumnIdentifier:   "COLUMN",
	ColumnsIdentifier:  "COLUMNS",
	Show:               "SHOW",
	In:                 "IN",
	Wildcard:           "*",
	String:             "String",
	Int:                "Int",
	Float:              "Float",
	Comma:              ",",
	ParenOpen:          "(",
	ParenClose:         ")",
	Semicolon:          ";",
	Equals:             "=",
	NotEquals:          "<>",
	LessThan:           "<",
	GreaterThan:        ">",
	LessThanOrEqual:    "<=",
	GreaterThanOrEqual: ">=",
	Plus:               "+",
	Minus:              "-",
	Slash:              "/",
	Percent:            "%",
	Concat:             "||",
	And:                "AND",
	Or:                 "OR",
	Not:                "NOT",
	Is:                 "IS",
	Null:               "NULL",
	Like:               "LIKE",
	True:               "TRUE",
	False:              "FALSE",
	Select:             "SELECT",
	From:               "FROM",
	Where:              "WHERE",
	Limit:              "LIMIT",
	Offset:             "OFFSET",
	Order:              "ORDER",
	By:                 "BY",
	Asc:                "ASC",
	Desc:               "DESC",
	As:                 "AS",
	Create:             "CREATE",
	Drop:               "DROP",
	Alter:              "ALTER",
	Add:                "ADD",
	Rename:             "RENAME",
	To:                 "TO",
	Insert:             "INSERT",
	Update:             "UPDATE",
	Delete:             "DELETE",
	Set:                "SET",
	Into:               "INTO",
	Values:             "VALUES",
	If:                 "IF",
	Exists:             "EXISTS",
	Engine:             "ENGINE",
	Primary:            "PRIMARY",
	Key:                "KEY",
	Version:            "VERSION",
	EOF:                "EOF",
}

func (tokenType TokenType) String() string {
	if name, ok := tokenNames[tokenType]; ok {
		return name
	}
	return "Unknown"
}

func (token Token) String() string {
	switch token.Type {
	case Identifier, String, Int, Float:
		return token.Type.String() + "(" + token.Value + ")"
	case Unknown:
		return "Unknown(" + token.Value + ")"
	default:
		return token.Type.String()
	}
}

// IsWord reports whether the token is an identifier or a keyword, which
// is what may appear where a bare name is expected after a keyword has
// already fixed the grammar position.
func (token Token) IsWord() bool {
	if token.Type == Identifier {
		return true
	}
	return isAlpha(firstByte(token.Value)) && lookupIdentifier(token.Value) == token.Type
}

type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	start := lexer.position
	token := lexer.scan()
	token.Pos = start
	token.End = lexer.position
	return token
}

func (lexer *Lexer) scan() Token {
	switch lexer.ch {
	case 0:
		return Token{Type: EOF}
	case ',':
		return lexer.single(Comma)
	case '(':
		return lexer.single(ParenOpen)
	case ')':
		return lexer.single(ParenClose)
	case ';':
		return lexer.single(Semicolon)
	case '*':
		return lexer.single(Wildcard)
	case '+':
		return lexer.single(Plus)
	case '-':
		return lexer.single(Minus)
	case '/':
		return lexer.single(Slash)
	case '%':
		return lexer.single(Percent)
	case '|':
		if lexer.peekChar() == '|' {
			lexer.readChar()
			lexer.readChar()
			return Token{Type: Concat, Value: "||"}
		}
		return lexer.single(Unknown)
	case '\'':
		value, ok := lexer.readQuoted('\'')
		if !ok {
			return Token{Type: Unknown, Value: "'" + value}
		}
		return Token{Type: String, Value: value}
	case '"', '`':
		quote := lexer.ch
		value, ok := lexer.readQuoted(quote)
		if !ok {
			return Token{Type: Unknown, Value: string(quote) + value}
		}
		return Token{Type: Identifier, Value: value}
	}

	if isOperator(lexer.ch) {
		operator := lexer.readOperator()
		switch operator {
		case "=", "==":
			return Token{Type: Equals, Value: operator}
		case "!=", "<>":
			return Token{Type: NotEquals, Value: operator}
		case "<":
			return Token{Type: LessThan, Value: operator}
		case ">":
			return Token{Type: GreaterThan, Value: operator}
		case "<=":
			return Token{Type: LessThanOrEqual, Value: operator}
		case ">=":
			return Token{Type: GreaterThanOrEqual, Value: operator}
		default:
			return Token{Type: Unknown, Value: operator}
		}
	}

	if isDigit(lexer.ch) {
		num := lexer.readNumber()
		if lexer.ch == '.' && isDigit(lexer.peekChar()) {
			lexer.readChar() // consume '.'
			decimal := lexer.readNumber()
			return Token{Type: Float, Value: num + "." + decimal}
		}
		return Token{Type: Int, Value: num}
	}

	if isAlpha(lexer.ch) {
		literal := lexer.readIdentifier()
		return Token{Type: lookupIdentifier(literal), Value: literal}
	}

	return lexer.single(Unknown)
}

func (lexer *Lexer) single(tokenType TokenType) Token {
	token := Token{Type: tokenType, Value: string(lexer.ch)}
	lexer.readChar()
	return token
}

func (lexer *Lexer) PeekToken() Token {
	// Save current state
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	// Restore state
	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespace() {
	for {
		switch {
		case lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r':
			lexer.readChar()
		case lexer.ch == '-' && lexer.peekChar() == '-':
			for lexer.ch != '\n' && lexer.ch != 0 {
				lexer.readChar()
			}
		case lexer.ch == '/' && lexer.peekChar() == '*':
			lexer.readChar()
			lexer.readChar()
			for lexer.ch != 0 && !(lexer.ch == '*' && lexer.peekChar() == '/') {
				lexer.readChar()
			}
			if lexer.ch != 0 {
				lexer.readChar()
				lexer.readChar()
			}
		default:
			return
		}
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readQuoted reads a quoted literal where a doubled quote is an escaped
// quote. The second result is false when the input ends before the
// closing quote.
func (lexer *Lexer) readQuoted(quote byte) (string, bool) {
	var builder strings.Builder
	lexer.readChar() // skip opening quote
	for {
		switch lexer.ch {
		case 0:
			return builder.String(), false
		case quote:
			if lexer.peekChar() == quote {
				builder.WriteByte(quote)
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar() // skip closing quote
			return builder.String(), true
		default:
			builder.WriteByte(lexer.ch)
			lexer.readChar()
		}
	}
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isAlpha(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func firstByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

func lookupIdentifier(id string) TokenType {
	switch toUpper(id) {
	case "TABLE":
		return TableIdentifier
	case "TABLES":
		return TablesIdentifier
	case "COLUMN":
		return ColumnIdentifier
	case "COLUMNS":
		return ColumnsIdentifier
	case "SHOW":
		return Show
	case "IN":
		return In
	case "AND":
		return And
	case "OR":
		return Or
	case "NOT":
		return Not
	case "IS":
		return Is
	case "NULL":
		return Null
	case "LIKE":
		return Like
	case "TRUE":
		return True
	case "FALSE":
		return False
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "LIMIT":
		return Limit
	case "OFFSET":
		return Offset
	case "ORDER":
		return Order
	case "BY":
		return By
	case "ASC":
		return Asc
	case "DESC":
		return Desc
	case "AS":
		return As
	case "CREATE":
		return Create
	case "DROP":
		return Drop
	case "ALTER":
		return Alter
	case "ADD":
		return Add
	case "RENAME":
		return Rename
	case "TO":
		return To
	case "INSERT":
		return Insert
	case "UPDATE":
		return Update
	case "DELETE":
		return Delete
	case "SET":
		return Set
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "IF":
		return If
	case "EXISTS":
		return Exists
	case "ENGINE":
		return Engine
	case "PRIMARY":
		return Primary
	case "KEY":
		return Key
	case "VERSION":
		return Version
	default:
		return Identifier
	}
}

// toUpper converts a string to uppercase without allocating for ASCII strings
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := make([]byte, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] >= 'a' && s[j] <= 'z' {
					b[j] = s[j] - 32
				} else {
					b[j] = s[j]
				}
			}
			return string(b)
		}
	}
	return s
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}
