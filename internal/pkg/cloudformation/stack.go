package cloudformation

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/aws-cdk-go/awscdklambdagoalpha/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/ptr"
)

// NewStack deploys the webhook receiver as a Lambda behind a public function
// URL, next to the Postgres instance holding the orders.
func NewStack(scope constructs.Construct, id string, props *awscdk.StackProps) awscdk.Stack {
	stack := awscdk.NewStack(scope, &id, props)

	dbUsername := awscdk.NewCfnParameter(stack, ptr.Of("DBUsername"), &awscdk.CfnParameterProps{
		NoEcho:      ptr.Of(true),
		Description: ptr.Of("PostgreSQL database username"),
		Type:        ptr.Of("String"),
	})

	dbPassword := awscdk.NewCfnParameter(stack, ptr.Of("DBPassword"), &awscdk.CfnParameterProps{
		NoEcho:      ptr.Of(true),
		Description: ptr.Of("PostgreSQL database password"),
		Type:        ptr.Of("String"),
	})

	webhookSecret := awscdk.NewCfnParameter(stack, ptr.Of("WebhookSecret"), &awscdk.CfnParameterProps{
		NoEcho:      ptr.Of(true),
		Description: ptr.Of("Notification secret from the merchant portal"),
		Type:        ptr.Of("String"),
	})

	defaultVpc := awsec2.Vpc_FromLookup(stack, ptr.Of("VPC"), &awsec2.VpcLookupOptions{
		IsDefault: ptr.Of(true),
		Region:    stack.Region(),
	})

	dbSg := awsec2.NewSecurityGroup(stack, ptr.Of("DBSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:               defaultVpc,
		SecurityGroupName: ptr.Of("DBSecurityGroup"),
	})

	dbSg.AddIngressRule(
		awsec2.Peer_AnyIpv4(),
		awsec2.NewPort(&awsec2.PortProps{
			StringRepresentation: ptr.Of("postgres"),
			Protocol:             awsec2.Protocol_TCP,
			FromPort:             jsii.Number(5432),
			ToPort:               jsii.Number(5432),
		}),
		nil,
		nil,
	)

	db := awsrds.NewCfnDBInstance(stack, ptr.Of("DBInstance"), &awsrds.CfnDBInstanceProps{
		AllocatedStorage:     ptr.Of("20"),
		PubliclyAccessible:   ptr.Of(true),
		MasterUsername:       dbUsername.ValueAsString(),
		MasterUserPassword:   dbPassword.ValueAsString(),
		VpcSecurityGroups:    &[]*string{dbSg.SecurityGroupId()},
		EngineVersion:        ptr.Of("14.6"),
		Engine:               ptr.Of("postgres"),
		DbInstanceClass:      ptr.Of("db.t3.micro"),
		DbInstanceIdentifier: ptr.Of("orders-db"),
	})

	databaseURL := awscdk.Fn_Join(ptr.Of(""), &[]*string{
		ptr.Of("postgres://"),
		dbUsername.ValueAsString(),
		ptr.Of(":"),
		dbPassword.ValueAsString(),
		ptr.Of("@"),
		db.AttrEndpointAddress(),
		ptr.Of(":"),
		db.AttrEndpointPort(),
		ptr.Of("/postgres"),
	})

	webhookFunction := awscdklambdagoalpha.NewGoFunction(stack, ptr.Of("WebhookLambda"), &awscdklambdagoalpha.GoFunctionProps{
		FunctionName: ptr.Of("PaymentNotificationWebhook"),
		Entry:        ptr.Of("cmd/lambda"),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(30)),
		Environment: &map[string]*string{
			"MPGS_DATABASE_URL":   databaseURL,
			"MPGS_WEBHOOK_SECRET": webhookSecret.ValueAsString(),
		},
	})

	functionURL := webhookFunction.AddFunctionUrl(&awslambda.FunctionUrlOptions{
		AuthType: awslambda.FunctionUrlAuthType_NONE,
	})

	awscdk.NewCfnOutput(stack, ptr.Of("WebhookURL"), &awscdk.CfnOutputProps{
		Value:       functionURL.Url(),
		Description: ptr.Of("Notification URL to register in the merchant portal"),
	})

	return stack
}
