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
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/opcua/server/limits"
	"github.com/facebook/opcua/ua"
	"github.com/facebook/opcua/uaservices"
)

func limitsDefault() limits.Limits { return limits.Default() }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEndpointDocument(t *testing.T) {
	path := writeFile(t, "server.xml", `
<ServerConfiguration>
  <ApplicationDescription ApplicationURI="urn:plant:server" ProductURI="urn:plant" ApplicationName="Plant Server" ApplicationType="Server"/>
  <PKI ServerCertificatePath="server.der" PrivateKeyPath="server.key" TrustedRootsPath="roots"/>
  <Endpoint URL="opc.tcp://localhost:4840">
    <SecurityPolicy URI="http://opcfoundation.org/UA/SecurityPolicy#None" Modes="None"/>
    <SecurityPolicy URI="http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256" Modes="Sign SignAndEncrypt"/>
    <UserPolicies>
      <Anonymous/>
      <UserName SecurityURI="http://opcfoundation.org/UA/SecurityPolicy#Basic256Sha256"/>
    </UserPolicies>
  </Endpoint>
</ServerConfiguration>`)

	doc, err := LoadEndpointDocument(path)
	require.NoError(t, err)
	require.Equal(t, "urn:plant:server", doc.Application.ApplicationURI)
	require.Len(t, doc.Endpoints, 1)
	ep := doc.Endpoints[0]
	require.Equal(t, "opc.tcp://localhost:4840", ep.URL)
	require.Len(t, ep.SecurityPolicies, 2)
	require.Equal(t, []string{"Sign", "SignAndEncrypt"}, ep.SecurityPolicies[1].ModeList())
	require.NotNil(t, ep.UserPolicies.Anonymous)
	require.NotNil(t, ep.UserPolicies.UserName)
	require.Nil(t, ep.UserPolicies.Certificate)
}

func TestLoadEndpointDocumentNoEndpoints(t *testing.T) {
	path := writeFile(t, "empty.xml", `<ServerConfiguration/>`)
	_, err := LoadEndpointDocument(path)
	require.Error(t, err)
}

func TestLoadClientDocument(t *testing.T) {
	path := writeFile(t, "client.xml", `
<ClientConfiguration>
  <PreferredLocale>en-US</PreferredLocale>
  <PreferredLocale>de</PreferredLocale>
  <ApplicationDescription ApplicationURI="urn:plant:client" ApplicationName="Plant Client" ApplicationType="Client"/>
  <Connection ServerURL="opc.tcp://remote:4840" RequestedLifetimeMs="60000" SecurityPolicy="http://opcfoundation.org/UA/SecurityPolicy#None" SecurityMode="None" UserPolicy="anonymous"/>
</ClientConfiguration>`)

	doc, err := LoadClientDocument(path)
	require.NoError(t, err)
	require.Equal(t, []string{"en-US", "de"}, doc.PreferredLocales)
	require.Len(t, doc.Connections, 1)
	require.Equal(t, "opc.tcp://remote:4840", doc.Connections[0].ServerURL)
	require.Equal(t, int64(60000), doc.Connections[0].Lifetime().Milliseconds())
}

func TestUsersAuthenticate(t *testing.T) {
	section := &PasswordSection{HashIterationCount: 1000, HashLength: 32, SaltLength: 16}
	salt := []byte("0123456789abcdef")
	hash := section.HashPassword([]byte("secret"), salt)

	path := writeFile(t, "users.xml", `
<Users>
  <Anonymous read="true" write="false"/>
  <UserPasswordConfiguration hash_iteration_count="1000" hash_length="32" salt_length="16">
    <UserPassword user="alice" hash="`+hex.EncodeToString(hash)+`" salt="`+hex.EncodeToString(salt)+`">
      <UserAuthorization read="true" write="true" execute="true"/>
    </UserPassword>
  </UserPasswordConfiguration>
</Users>`)

	doc, err := LoadUsersDocument(path)
	require.NoError(t, err)

	// correct password
	user, status := doc.Authenticate(uaservices.UserIdentity{UserName: "alice", Password: []byte("secret")})
	require.Equal(t, ua.Ok, status)
	rights := user.(*UserRights)
	require.True(t, rights.Write)
	require.True(t, doc.CanWrite(user, ua.NewNumericNodeID(2, 1), ua.AttrValue))

	// wrong password
	_, status = doc.Authenticate(uaservices.UserIdentity{UserName: "alice", Password: []byte("wrong")})
	require.Equal(t, ua.BadIdentityTokenRejected, status)

	// unknown user
	_, status = doc.Authenticate(uaservices.UserIdentity{UserName: "mallory", Password: []byte("secret")})
	require.Equal(t, ua.BadIdentityTokenRejected, status)

	// anonymous maps to the Anonymous rights: readable, not writable
	user, status = doc.Authenticate(uaservices.UserIdentity{})
	require.Equal(t, ua.Ok, status)
	require.False(t, doc.CanWrite(user, ua.NewNumericNodeID(2, 1), ua.AttrValue))
}

const testNodeSet = `
<UANodeSet Version="1.04">
  <Aliases>
    <Alias Alias="HasComponent">i=47</Alias>
    <Alias Alias="HasTypeDefinition">i=40</Alias>
  </Aliases>
  <UAObject NodeId="ns=2;s=Plant" BrowseName="2:Plant">
    <DisplayName>Plant</DisplayName>
    <References>
      <Reference ReferenceType="HasComponent">ns=2;s=Plant.Temperature</Reference>
    </References>
  </UAObject>
  <UAVariable NodeId="ns=2;s=Plant.Temperature" BrowseName="2:Temperature" DataType="Double" ValueRank="-1" AccessLevel="3">
    <DisplayName>Temperature</DisplayName>
    <Description>Boiler temperature</Description>
    <References>
      <Reference ReferenceType="HasComponent" IsForward="false">ns=2;s=Plant</Reference>
      <Reference ReferenceType="HasTypeDefinition">i=63</Reference>
    </References>
    <Value><Double>21.5</Double></Value>
  </UAVariable>
  <UAVariable NodeId="ns=2;s=Plant.Setpoints" BrowseName="2:Setpoints" DataType="Int32" ValueRank="1">
    <Value><ListOfInt32><Int32>10</Int32><Int32>20</Int32></ListOfInt32></Value>
  </UAVariable>
  <UAMethod NodeId="ns=2;s=Plant.Reset" BrowseName="2:Reset" Executable="true">
    <DisplayName>Reset</DisplayName>
  </UAMethod>
</UANodeSet>`

func TestLoadNodeSetDocument(t *testing.T) {
	path := writeFile(t, "nodeset.xml", testNodeSet)
	doc, err := LoadNodeSetDocument(path)
	require.NoError(t, err)

	nodes, err := doc.BuildNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	byID := make(map[string]int)
	for i, n := range nodes {
		byID[n.NodeID.String()] = i
	}

	obj := nodes[byID["ns=2;s=Plant"]]
	require.Equal(t, ua.NodeClassObject, obj.Class)
	require.Equal(t, ua.QualifiedName{NS: 2, Name: "Plant"}, obj.BrowseName)
	n, refs := obj.IterateReferences()
	require.Equal(t, 1, n)
	require.Equal(t, ua.NewNumericNodeID(0, 47), refs[0].ReferenceTypeID)
	require.False(t, refs[0].IsInverse)

	v := nodes[byID["ns=2;s=Plant.Temperature"]]
	require.Equal(t, ua.NodeClassVariable, v.Class)
	require.Equal(t, ua.TypeDouble, v.Value.TypeID)
	require.Equal(t, 21.5, v.Value.Value)
	require.Equal(t, ua.NewNumericNodeID(0, 11), v.DataType)
	require.True(t, v.HasDescription)
	_, vrefs := v.IterateReferences()
	require.True(t, vrefs[0].IsInverse)

	arr := nodes[byID["ns=2;s=Plant.Setpoints"]]
	require.Equal(t, ua.ShapeArray, arr.Value.Shape)
	require.Equal(t, []int32{10, 20}, arr.Value.Value)

	m := nodes[byID["ns=2;s=Plant.Reset"]]
	require.Equal(t, ua.NodeClassMethod, m.Class)
	require.True(t, m.Executable)
}

func TestNodeSetVersionGate(t *testing.T) {
	path := writeFile(t, "future.xml", `<UANodeSet Version="2.0"/>`)
	_, err := LoadNodeSetDocument(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "newer than supported")
}

func TestReadDaemonConfig(t *testing.T) {
	path := writeFile(t, "opcuad.yaml", `
endpointconfig: /etc/opcuad/server.xml
nodeset: /etc/opcuad/nodeset.xml
users: /etc/opcuad/users.xml
retaindb: /var/lib/opcuad/retain.db
maxoperationspermessage: 500
minsessiontimeout: 5s
`)
	dc, err := ReadDaemonConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/etc/opcuad/server.xml", dc.EndpointConfigPath)

	lim := dc.ApplyLimits(limitsDefault())
	require.Equal(t, uint32(500), lim.MaxOperationsPerMessage)
	require.Equal(t, int64(5000), lim.MinSessionTimeout.Milliseconds())
	// untouched fields keep their defaults
	require.Equal(t, limitsDefault().MaxSessions, lim.MaxSessions)
}

func TestReadDaemonConfigMissingPaths(t *testing.T) {
	path := writeFile(t, "bad.yaml", `users: /etc/opcuad/users.xml`)
	_, err := ReadDaemonConfig(path)
	require.Error(t, err)
}
