/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

// UsersDocument is the parsed users document of Part 6: anonymous
// permissions, salted-PBKDF2 password entries, and optional per-user
// certificate rights.
type UsersDocument struct {
	XMLName      xml.Name          `xml:"Users"`
	Anonymous    *UserRights       `xml:"Anonymous"`
	Passwords    *PasswordSection  `xml:"UserPasswordConfiguration"`
	Certificates *CertSection      `xml:"UserCertificates"`
}

// UserRights is one user's permission set.
type UserRights struct {
	User          string `xml:"user,attr"`
	Read          bool   `xml:"read,attr"`
	Write         bool   `xml:"write,attr"`
	Execute       bool   `xml:"execute,attr"`
	AddNode       bool   `xml:"addnode,attr"`
	ReceiveEvents bool   `xml:"receive_events,attr"`
}

// PasswordSection holds the PBKDF2 parameters and the password entries.
type PasswordSection struct {
	HashIterationCount int                 `xml:"hash_iteration_count,attr"`
	HashLength         int                 `xml:"hash_length,attr"`
	SaltLength         int                 `xml:"salt_length,attr"`
	Users              []UserPasswordEntry `xml:"UserPassword"`
}

// UserPasswordEntry is one user's salted hash and authorization rights.
// Hash and Salt accept hex or base64 encoding.
type UserPasswordEntry struct {
	User          string     `xml:"user,attr"`
	Hash          string     `xml:"hash,attr"`
	Salt          string     `xml:"salt,attr"`
	Authorization UserRights `xml:"UserAuthorization"`
}

// CertSection lists a trust PKI plus per-certificate rights.
type CertSection struct {
	TrustPKIPath string             `xml:"trust_pki,attr"`
	Certificates []CertificateEntry `xml:"Certificate"`
}

// CertificateEntry maps one certificate thumbprint to rights.
type CertificateEntry struct {
	Thumbprint    string     `xml:"thumbprint,attr"`
	Authorization UserRights `xml:"UserAuthorization"`
}

// LoadUsersDocument parses the users document at path.
func LoadUsersDocument(path string) (*UsersDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users config: %w", err)
	}
	var doc UsersDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing users config: %w", err)
	}
	if doc.Passwords != nil {
		if doc.Passwords.HashIterationCount <= 0 || doc.Passwords.HashLength <= 0 {
			return nil, fmt.Errorf("users config %s has invalid PBKDF2 parameters", path)
		}
		for _, u := range doc.Passwords.Users {
			if u.User == "" {
				return nil, fmt.Errorf("users config %s has a UserPassword entry with no user attribute", path)
			}
			if _, err := decodeHexOrBase64(u.Hash); err != nil {
				return nil, fmt.Errorf("user %s: bad hash encoding: %w", u.User, err)
			}
			if _, err := decodeHexOrBase64(u.Salt); err != nil {
				return nil, fmt.Errorf("user %s: bad salt encoding: %w", u.User, err)
			}
		}
	}
	return &doc, nil
}

// decodeHexOrBase64 accepts either encoding, trying hex first since a
// hex string is also valid base64 for some lengths but not vice versa.
func decodeHexOrBase64(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// Authenticate validates an ActivateSession identity token against the
// document, per Part 4. The returned user value is the matched
// *UserRights, which CanWrite then consults on Write. An unknown user
// or a wrong password reports BadIdentityTokenRejected.
func (d *UsersDocument) Authenticate(token uaservices.UserIdentity) (any, ua.StatusCode) {
	if token.UserName == "" {
		if d.Anonymous == nil {
			return nil, ua.BadIdentityTokenRejected
		}
		return d.Anonymous, ua.Ok
	}
	if d.Passwords == nil {
		return nil, ua.BadIdentityTokenRejected
	}
	for i := range d.Passwords.Users {
		u := &d.Passwords.Users[i]
		if u.User != token.UserName {
			continue
		}
		salt, err := decodeHexOrBase64(u.Salt)
		if err != nil {
			return nil, ua.BadIdentityTokenRejected
		}
		want, err := decodeHexOrBase64(u.Hash)
		if err != nil {
			return nil, ua.BadIdentityTokenRejected
		}
		got := pbkdf2.Key(token.Password, salt, d.Passwords.HashIterationCount, d.Passwords.HashLength, sha256.New)
		if subtle.ConstantTimeCompare(got, want) != 1 {
			return nil, ua.BadIdentityTokenRejected
		}
		rights := u.Authorization
		rights.User = u.User
		return &rights, ua.Ok
	}
	return nil, ua.BadIdentityTokenRejected
}

// CanWrite authorizes one write for the user value Authenticate
// produced, the external authorization callback of Part 4.
func (d *UsersDocument) CanWrite(user any, node ua.NodeID, attribute ua.AttributeID) bool {
	rights, ok := user.(*UserRights)
	if !ok || rights == nil {
		return false
	}
	return rights.Write
}

// HashPassword derives the stored hash for password under the
// document's PBKDF2 parameters, for provisioning tools and tests.
func (p *PasswordSection) HashPassword(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, p.HashIterationCount, p.HashLength, sha256.New)
}
